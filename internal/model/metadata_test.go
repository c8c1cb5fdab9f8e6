package model

import (
	"encoding/json"
	"testing"
)

func TestMetaValueRoundTrip(t *testing.T) {
	md := DocumentMetadata{Title: "Quarterly Report", PageCount: 3}
	md.SetProperty("HasHeader", Bool(true))
	md.SetProperty("CsvColumnCount", Int(4))
	md.SetProperty("OcrConfidence", Float(0.87))
	md.SetProperty("OcrWarnings", Strings([]string{"low contrast"}))
	md.SetProperty("Encoding", String("utf-16le"))

	data, err := json.Marshal(md)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back DocumentMetadata
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if v, ok := back.Property("HasHeader"); !ok || v.Kind != KindBool || !v.Bool {
		t.Errorf("HasHeader = %+v, ok=%v", v, ok)
	}
	if v, ok := back.Property("CsvColumnCount"); !ok || v.Kind != KindInt || v.Int != 4 {
		t.Errorf("CsvColumnCount = %+v, ok=%v", v, ok)
	}
	if v, ok := back.Property("OcrConfidence"); !ok || v.Kind != KindFloat || v.Float != 0.87 {
		t.Errorf("OcrConfidence = %+v, ok=%v", v, ok)
	}
	if v, ok := back.Property("OcrWarnings"); !ok || v.Kind != KindStrings || len(v.Strings) != 1 {
		t.Errorf("OcrWarnings = %+v, ok=%v", v, ok)
	}
	if v, ok := back.Property("Encoding"); !ok || v.Str != "utf-16le" {
		t.Errorf("Encoding = %+v, ok=%v", v, ok)
	}
}

func TestPropertyLookupIsDefensive(t *testing.T) {
	var md DocumentMetadata
	if _, ok := md.Property("anything"); ok {
		t.Fatal("lookup on empty bag should report absence")
	}
}
