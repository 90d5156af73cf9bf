package yaml

import "testing"

func FuzzConfigParser(f *testing.F) {
	f.Add([]byte("fail_threshold: bad\nsuppress: info\n"))
	f.Add([]byte("unicode:\n  forbidden_codepoints: [0x202E, U+2066]\n"))
	f.Add([]byte("security_rules:\n  - path: 'docs/*'\n    rules:\n      unicode: skip\n"))
	f.Add([]byte("fetch:\n  poll_timeout: 1s\n"))
	f.Add([]byte("{}"))

	p := NewConfigParser(nil)
	f.Fuzz(func(t *testing.T, data []byte) {
		cfg, err := p.Parse(data)
		if err != nil {
			return
		}
		for _, cp := range cfg.Unicode.ForbiddenCodepoints {
			if cp > 0x10FFFF || (cp >= 0xD800 && cp <= 0xDFFF) {
				t.Errorf("parsed config forbids invalid code point %v", cp)
			}
		}
		if cfg.Fetch.Workers <= 0 {
			t.Errorf("parsed config has %d fetch workers", cfg.Fetch.Workers)
		}
		if cfg.UIDBoundary < 0 {
			t.Errorf("parsed config has negative uid boundary %d", cfg.UIDBoundary)
		}
	})
}
