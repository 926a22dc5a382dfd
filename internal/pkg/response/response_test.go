package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/pkg/response"
)

func TestEnvelopeShape(t *testing.T) {
	rec := httptest.NewRecorder()
	response.OK(rec, map[string]string{"status": "funded"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json, got %s", ct)
	}

	var env response.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !env.Success {
		t.Fatal("expected success envelope")
	}
	if env.Error != nil {
		t.Fatal("success envelope must not carry an error")
	}
}

func TestErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	response.ValidationError(rec, map[string]string{"amount": "Amount must be greater than zero"})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	var env response.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if env.Success {
		t.Fatal("error envelope must not claim success")
	}
	if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %+v", env.Error)
	}
	if env.Error.Details["amount"] == "" {
		t.Fatal("expected field details to pass through")
	}
}

func TestMetaPassThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	response.WithMeta(rec, []int{1, 2}, response.Meta{Total: 12, Page: 2, Limit: 2, Pages: 6, HasNext: true, HasPrev: true})

	var env response.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if env.Meta == nil || env.Meta.Total != 12 || !env.Meta.HasNext {
		t.Fatalf("expected meta to pass through, got %+v", env.Meta)
	}
}
