package ingest

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/trustmark-cpa/nexus-monitor/pkg/model"
)

var validate = validator.New()

// jurisdictions lists the codes economic-nexus monitoring covers: the fifty
// states plus DC and Puerto Rico.
var jurisdictions = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true,
	"CT": true, "DE": true, "FL": true, "GA": true, "HI": true, "ID": true,
	"IL": true, "IN": true, "IA": true, "KS": true, "KY": true, "LA": true,
	"ME": true, "MD": true, "MA": true, "MI": true, "MN": true, "MS": true,
	"MO": true, "MT": true, "NE": true, "NV": true, "NH": true, "NJ": true,
	"NM": true, "NY": true, "NC": true, "ND": true, "OH": true, "OK": true,
	"OR": true, "PA": true, "RI": true, "SC": true, "SD": true, "TN": true,
	"TX": true, "UT": true, "VT": true, "VA": true, "WA": true, "WV": true,
	"WI": true, "WY": true, "DC": true, "PR": true,
}

type recordRules struct {
	ClientID        string  `validate:"required,max=128"`
	ClientName      string  `validate:"max=256"`
	StateCode       string  `validate:"required,len=2,alpha"`
	CurrentAmount   float64 `validate:"gte=0"`
	ThresholdAmount float64 `validate:"gt=0"`
}

// ValidateRecord applies structural rules plus the jurisdiction check on a
// parsed record.
func ValidateRecord(rec model.ClientStateRecord) error {
	rules := recordRules{
		ClientID:        rec.ClientID,
		ClientName:      rec.ClientName,
		StateCode:       rec.StateCode,
		CurrentAmount:   rec.CurrentAmount,
		ThresholdAmount: rec.ThresholdAmount,
	}
	if err := validate.Struct(rules); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			first := errs[0]
			return fmt.Errorf("field %s fails rule %q", first.Field(), first.Tag())
		}
		return err
	}
	if !jurisdictions[rec.StateCode] {
		return fmt.Errorf("unknown jurisdiction %q", rec.StateCode)
	}
	return nil
}
