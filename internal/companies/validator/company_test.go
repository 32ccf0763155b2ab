package validator

import (
	"errors"
	"strings"
	"testing"

	"jobfair/pkg/logger"
	"jobfair/pkg/model"
)

func TestValidate(t *testing.T) {
	v := NewCompanyValidator(logger.Discard())

	tests := []struct {
		name      string
		company   model.Company
		wantField string
	}{
		{
			name:    "minimal",
			company: model.Company{Name: "Acme"},
		},
		{
			name: "full",
			company: model.Company{
				Name:        "Acme",
				Address:     "1 Sukhumvit Rd, Bangkok",
				Website:     "https://acme.example.com",
				Description: "Rockets",
				Tel:         "+6621234567",
			},
		},
		{
			name:      "missing name",
			company:   model.Company{},
			wantField: "name",
		},
		{
			name:      "name too long",
			company:   model.Company{Name: strings.Repeat("a", 121)},
			wantField: "name",
		},
		{
			name:      "bad website",
			company:   model.Company{Name: "Acme", Website: "not a url"},
			wantField: "website",
		},
		{
			name:      "national phone",
			company:   model.Company{Name: "Acme", Tel: "021234567"},
			wantField: "tel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.company)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if verrs[0].Field != tt.wantField {
				t.Errorf("field = %q, want %q", verrs[0].Field, tt.wantField)
			}
		})
	}
}
