package openai

import "testing"

func TestConfigValidateRequiresFields(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"missing api key", Config{BaseURL: "http://x", Model: "m"}, false},
		{"missing base url", Config{APIKey: "k", Model: "m"}, false},
		{"missing model", Config{APIKey: "k", BaseURL: "http://x"}, false},
		{"complete", Config{APIKey: "k", BaseURL: "http://x", Model: "m"}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.cfg.Validate()
			if c.ok && err != nil {
				t.Errorf("expected valid config, got %v", err)
			}
			if !c.ok && err == nil {
				t.Errorf("expected validation error, got nil")
			}
		})
	}
}

func TestConfigValidateTemperatureRange(t *testing.T) {
	bad := float32(3.0)
	cfg := Config{APIKey: "k", BaseURL: "http://x", Model: "m", Temperature: &bad}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range temperature")
	}
}
