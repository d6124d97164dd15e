package util

import "testing"

func TestPtr(t *testing.T) {
	v := 42
	p := Ptr(v)
	if *p != 42 {
		t.Errorf("expected *p=42, got %d", *p)
	}

	s := Ptr("hello")
	if *s != "hello" {
		t.Errorf("expected *s=hello, got %s", *s)
	}
}
