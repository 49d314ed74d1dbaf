package blendsettings

import (
	"testing"
)

func TestParseOrderPreserved(t *testing.T) {
	doc := []byte(`{"10":{"lut":"00FF00","min":0,"max":4095},"2":{"lut":"#FF0000","min":10,"max":3000}}`)

	got, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 settings, got %d", len(got))
	}
	if got[0].ChannelIndex != 10 || got[0].TintHex != "00ff00" || got[0].Min != 0 || got[0].Max != 4095 {
		t.Errorf("unexpected first setting: %+v", got[0])
	}
	if got[1].ChannelIndex != 2 || got[1].TintHex != "ff0000" || got[1].Min != 10 || got[1].Max != 3000 {
		t.Errorf("unexpected second setting: %+v", got[1])
	}
}

func TestParseEmptyObjectSucceeds(t *testing.T) {
	got, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected zero settings, got %d", len(got))
	}
}

func TestParseRejectsBadTint(t *testing.T) {
	_, err := Parse([]byte(`{"0":{"lut":"XYZ123","min":0,"max":10}}`))
	if err == nil {
		t.Fatal("expected error for non-hex tint")
	}
	berr, ok := err.(*Error)
	if !ok || berr.Code != "2 1" {
		t.Errorf("expected code 2 1, got %v", err)
	}
}

func TestParseRejectsMaxNotGreaterThanMin(t *testing.T) {
	cases := []string{
		`{"0":{"lut":"FF0000","min":10,"max":10}}`,
		`{"0":{"lut":"FF0000","min":10,"max":5}}`,
	}
	for _, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("expected error for %q", doc)
		}
	}
}

func TestParseAcceptsMinZero(t *testing.T) {
	got, err := Parse([]byte(`{"0":{"lut":"FFFFFF","min":0,"max":255}}`))
	if err != nil {
		t.Fatalf("min=0 should be accepted: %v", err)
	}
	if got[0].Min != 0 {
		t.Errorf("expected min 0, got %d", got[0].Min)
	}
}

func TestParseRejectsMissingField(t *testing.T) {
	cases := []string{
		`{"0":{"min":0,"max":10}}`,
		`{"0":{"lut":"FF0000","max":10}}`,
		`{"0":{"lut":"FF0000","min":0}}`,
	}
	for _, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("expected error for %q", doc)
		}
	}
}

func TestParseAcceptsOptionalLeadingHash(t *testing.T) {
	withHash, err := Parse([]byte(`{"0":{"lut":"#00ff00","min":0,"max":10}}`))
	if err != nil {
		t.Fatalf("leading # should be accepted: %v", err)
	}
	withoutHash, err := Parse([]byte(`{"0":{"lut":"00ff00","min":0,"max":10}}`))
	if err != nil {
		t.Fatalf("no leading # should be accepted: %v", err)
	}
	if withHash[0].TintHex != withoutHash[0].TintHex {
		t.Errorf("tint mismatch: %q vs %q", withHash[0].TintHex, withoutHash[0].TintHex)
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	if _, err := Parse([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
