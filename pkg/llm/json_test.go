package llm

import "testing"

func TestExtractJSON_PlainObject(t *testing.T) {
	input := `{"personalitySummary": {"title": "t"}, "recommendations": []}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != input {
		t.Errorf("expected %q, got %q", input, result)
	}
}

func TestExtractJSON_CodeFence(t *testing.T) {
	input := "Here are your fragrances:\n```json\n{\"recommendations\": [{\"name\": \"Vetiver Noir\"}]}\n```"
	expected := `{"recommendations": [{"name": "Vetiver Noir"}]}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestExtractJSON_BracesInsideStrings(t *testing.T) {
	input := `{"description": "notes of {amber} and \"musk\""}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != input {
		t.Errorf("expected %q, got %q", input, result)
	}
}

func TestExtractJSON_PrefersObjectOverLaterArray(t *testing.T) {
	input := `{"recommendations": [1, 2]}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != input {
		t.Errorf("expected full object, got %q", result)
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	if _, err := ExtractJSON("the sensory library is resting"); err == nil {
		t.Fatal("expected error for reply without JSON")
	}
}

func TestExtractJSON_UnbalancedObject(t *testing.T) {
	if _, err := ExtractJSON(`{"name": "truncated`); err == nil {
		t.Fatal("expected error for unbalanced JSON")
	}
}

func TestParseJSONResponse(t *testing.T) {
	type reply struct {
		Name string `json:"name"`
	}
	got, err := ParseJSONResponse[reply]("prose before {\"name\": \"Cedar Song\"} prose after")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Cedar Song" {
		t.Errorf("expected Cedar Song, got %q", got.Name)
	}
}
