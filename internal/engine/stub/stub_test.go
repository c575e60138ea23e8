package stub

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"llmapi/internal/chat"
)

func drain(t *testing.T, g chat.Generation) ([]string, error) {
	t.Helper()
	var out []string
	for {
		s, err := g.Recv()
		if err != nil {
			return out, err
		}
		if s.Last {
			return out, nil
		}
		out = append(out, s.Text)
	}
}

func TestDefaultReplyAndEmpty(t *testing.T) {
	e := New()
	g, err := e.Generate(context.Background(), chat.Encoding{Text: "p"}, chat.Encoding{Text: "s"}, 0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	got, err := drain(t, g)
	if err != nil || len(got) != len(DefaultReply) {
		t.Fatalf("got %v err=%v", got, err)
	}
	_ = g.Close()

	empty := &Engine{Fragments: []string{}}
	g, _ = empty.Generate(context.Background(), chat.Encoding{}, chat.Encoding{}, 0)
	if got, err := drain(t, g); err != nil || len(got) != 0 {
		t.Fatalf("empty engine produced %v err=%v", got, err)
	}
}

func TestMaxLengthAndPrompts(t *testing.T) {
	e := New("a", "b", "c")
	g, _ := e.Generate(context.Background(), chat.Encoding{Text: "Q"}, chat.Encoding{Text: "S"}, 2)
	got, _ := drain(t, g)
	if len(got) != 2 {
		t.Fatalf("maxLength not applied: %v", got)
	}
	if p := e.Prompts(); len(p) != 1 || p[0] != "SQ" {
		t.Fatalf("prompts=%v", p)
	}
	if e.Open() != 1 {
		t.Fatalf("open=%d", e.Open())
	}
	_ = g.Close()
	_ = g.Close()
	if e.Open() != 0 {
		t.Fatalf("open after close=%d", e.Open())
	}
	if _, err := g.Recv(); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("recv after close err=%v", err)
	}
}

func TestFaultInjection(t *testing.T) {
	e := &Engine{Fragments: []string{"a", "b", "c"}, FailAfter: 1}
	g, _ := e.Generate(context.Background(), chat.Encoding{}, chat.Encoding{}, 0)
	got, err := drain(t, g)
	if len(got) != 1 || !errors.Is(err, errInjected) {
		t.Fatalf("got %v err=%v", got, err)
	}

	boom := errors.New("boom")
	e = &Engine{EncodeErr: boom, GenerateErr: boom}
	if _, err := e.Encode(context.Background(), nil); !errors.Is(err, boom) {
		t.Fatalf("encode err=%v", err)
	}
	if _, err := e.Generate(context.Background(), chat.Encoding{}, chat.Encoding{}, 0); !errors.Is(err, boom) {
		t.Fatalf("generate err=%v", err)
	}
}

func TestDelayHonoursContext(t *testing.T) {
	e := &Engine{Fragments: []string{"slow"}, Delay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	g, _ := e.Generate(ctx, chat.Encoding{}, chat.Encoding{}, 0)
	defer g.Close()
	cancel()
	if _, err := g.Recv(); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
}

func TestTokenizeAndEncode(t *testing.T) {
	if n := len(Tokenize("  one two\tthree\n")); n != 3 {
		t.Fatalf("tokens=%d", n)
	}
	a, b := Tokenize("same"), Tokenize("same")
	if a[0] != b[0] {
		t.Fatalf("tokenize not deterministic")
	}
	enc, err := New().Encode(context.Background(), []chat.Message{{Role: chat.RoleUser, Content: "Hello"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if enc.Text != chat.RenderPrompt([]chat.Message{{Role: chat.RoleUser, Content: "Hello"}}) || len(enc.Tokens) != len(Tokenize(enc.Text)) {
		t.Fatalf("encoding=%+v", enc)
	}
}
