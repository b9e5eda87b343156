package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/types"
)

type staffForm struct {
	Name     string `json:"name" validate:"required"`
	Mobile   string `json:"mobile" validate:"required,mobile"`
	Password string `json:"password" validate:"omitempty,min=8"`
	Shifts   int    `json:"shifts"`
}

func decode(t *testing.T, body string) (staffForm, error) {
	t.Helper()
	var form staffForm
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workers", strings.NewReader(body))
	return form, DecodeJSONBody(req, &form)
}

func details(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	d, _ := typed.Details().(map[string]string)
	return d
}

func TestDecodeJSONBodyAcceptsValidForm(t *testing.T) {
	form, err := decode(t, `{"name":"Ravi","mobile":"+91 98450 12345","shifts":2}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if form.Name != "Ravi" || form.Shifts != 2 {
		t.Fatalf("unexpected form %+v", form)
	}
}

func TestDecodeJSONBodyFieldErrorsUseJSONNames(t *testing.T) {
	_, err := decode(t, `{"mobile":"12","password":"short"}`)
	d := details(t, err)
	if d["name"] != "is required" {
		t.Fatalf("name: %q", d["name"])
	}
	if d["mobile"] != "must be a phone number" {
		t.Fatalf("mobile: %q", d["mobile"])
	}
	if d["password"] != "must be at least 8 characters" {
		t.Fatalf("password: %q", d["password"])
	}
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]struct {
		body  string
		field string
	}{
		"unknown field": {body: `{"name":"Ravi","mobile":"+15550001111","role":"admin"}`, field: "role"},
		"wrong type":    {body: `{"name":"Ravi","mobile":"+15550001111","shifts":"two"}`, field: "shifts"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decode(t, tc.body)
			if _, ok := details(t, err)[tc.field]; !ok {
				t.Fatalf("expected detail for %s, got %v", tc.field, pkgerrors.As(err).Details())
			}
		})
	}

	for _, body := range []string{"", `{"name":`, `{"name":"a","mobile":"+15550001111"}{}`} {
		if _, err := decode(t, body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%q: expected validation error, got %v", body, err)
		}
	}
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	_, err := decode(t, `{"name":"`+strings.Repeat("a", MaxBodyBytes)+`"}`)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Message() != "request body too large" {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsHugeAmounts(t *testing.T) {
	var form struct {
		Amount types.LooseAmount `json:"amount"`
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/x/usage", strings.NewReader(`{"amount":"1e9999999"}`))
	err := DecodeJSONBody(req, &form)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation || typed.Message() != "number out of range" {
		t.Fatalf("expected out of range validation error, got %v", err)
	}
}
