package validate

import "testing"

func TestEmail(t *testing.T) {
	for _, ok := range []string{"a@b.com", "Admin@Example.org"} {
		if err := Email(ok); err != nil {
			t.Fatalf("Email(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", "ab.com", "@b.com", "a@", "a b@c.com", "a@b@c"} {
		if err := Email(bad); err == nil {
			t.Fatalf("Email(%q): expected error", bad)
		}
	}
}

func TestInfoName(t *testing.T) {
	got, err := InfoName("  hola  ")
	if err != nil || got != "hola" {
		t.Fatalf("InfoName: %q %v", got, err)
	}
	if _, err := InfoName(" \t\n"); err == nil {
		t.Fatalf("expected error for blank name")
	}
}

func TestUploadName(t *testing.T) {
	good := "3f2504e0-4f89-41d3-9a0c-0305e82c3301.jpg"
	if err := UploadName(good, ".jpg"); err != nil {
		t.Fatalf("UploadName(%q): %v", good, err)
	}
	for _, bad := range []string{
		"",
		".jpg",
		"3f2504e0-4f89-41d3-9a0c-0305e82c3301.png",
		"3F2504E0-4F89-41D3-9A0C-0305E82C3301.jpg",
		"{3f2504e0-4f89-41d3-9a0c-0305e82c3301}.jpg",
		"../data/data.db",
		"../3f2504e0-4f89-41d3-9a0c-0305e82c3301.jpg",
	} {
		if err := UploadName(bad, ".jpg"); err == nil {
			t.Fatalf("UploadName(%q): expected error", bad)
		}
	}
}
