package extract

import (
	"errors"
	"strings"
	"testing"
)

type fakePages struct {
	pages map[int]string
	fail  map[int]error
}

func (f *fakePages) NumPage() int { return len(f.pages) + len(f.fail) }

func (f *fakePages) PageText(n int) (string, error) {
	if err, ok := f.fail[n]; ok {
		return "", err
	}
	return f.pages[n], nil
}

func TestRenderPages(t *testing.T) {
	src := &fakePages{
		pages: map[int]string{1: "alpha", 3: "gamma"},
		fail:  map[int]error{2: errors.New("bad stream")},
	}
	text := renderPages(src)

	for _, want := range []string{
		"[PAGE 1]\nalpha",
		"[PAGE 2 - ERROR: bad stream]",
		"[PAGE 3]\ngamma",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q:\n%s", want, text)
		}
	}
	if strings.Index(text, "[PAGE 1]") > strings.Index(text, "[PAGE 2") {
		t.Fatal("pages rendered out of order")
	}
}

func TestRenderPagesEmpty(t *testing.T) {
	if text := renderPages(&fakePages{}); text != "" {
		t.Fatalf("text = %q, want empty", text)
	}
}
