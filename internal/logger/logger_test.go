package logger

import "testing"

func TestNew_NotNil(t *testing.T) {
	l := New("info")
	if l == nil {
		t.Fatal("New() returned nil")
	}
}
