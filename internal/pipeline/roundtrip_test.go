package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tjfontaine/enrichment-gateway/internal/core/domain"
)

// stubConverter records conversion calls. The forward conversion returns a
// semantic body and a skeleton derived from the markup.
type stubConverter struct {
	mu        sync.Mutex
	toErr     error
	fromErr   error
	delay     time.Duration
	toCalls   []string
	fromCalls [][2]string
}

func (c *stubConverter) ToSemantic(ctx context.Context, markup string) (string, string, error) {
	c.mu.Lock()
	c.toCalls = append(c.toCalls, markup)
	c.mu.Unlock()
	time.Sleep(c.delay)

	if c.toErr != nil {
		return "", "", c.toErr
	}
	return "S(" + markup + ")", "K(" + markup + ")", nil
}

func (c *stubConverter) FromSemantic(ctx context.Context, semantic, skeleton string) (string, error) {
	c.mu.Lock()
	c.fromCalls = append(c.fromCalls, [2]string{semantic, skeleton})
	c.mu.Unlock()
	time.Sleep(c.delay)

	if c.fromErr != nil {
		return "", c.fromErr
	}
	return fmt.Sprintf("<merged skeleton=%q>%s</merged>", skeleton, semantic), nil
}

func (c *stubConverter) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.toCalls), len(c.fromCalls)
}

func TestRoundTrip_ForwardThenBackward(t *testing.T) {
	conv := &stubConverter{}
	rt := newRoundTrip(conv)
	ctx := context.Background()

	semantic, err := rt.Forward(ctx, "<p>x</p>")
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if semantic != "S(<p>x</p>)" {
		t.Errorf("Forward() = %q", semantic)
	}

	markup, err := rt.Backward(ctx, "enriched")
	if err != nil {
		t.Fatalf("Backward() error = %v", err)
	}
	if !strings.Contains(markup, `skeleton="K(<p>x</p>)"`) {
		t.Errorf("Backward() = %q", markup)
	}
	if conv.fromCalls[0] != [2]string{"enriched", "K(<p>x</p>)"} {
		t.Errorf("FromSemantic called with %v", conv.fromCalls[0])
	}
}

func TestRoundTrip_SkeletonIsSingleUse(t *testing.T) {
	rt := newRoundTrip(&stubConverter{})
	ctx := context.Background()

	if _, err := rt.Forward(ctx, "<p>x</p>"); err != nil {
		t.Fatal(err)
	}
	if _, err := rt.Backward(ctx, "a"); err != nil {
		t.Fatal(err)
	}

	_, err := rt.Backward(ctx, "b")
	var backward *domain.BackwardConversionError
	if !errors.As(err, &backward) {
		t.Fatalf("second Backward() error = %v, want BackwardConversionError", err)
	}
}

func TestRoundTrip_BackwardWithoutForward(t *testing.T) {
	conv := &stubConverter{}
	rt := newRoundTrip(conv)

	_, err := rt.Backward(context.Background(), "x")
	var backward *domain.BackwardConversionError
	if !errors.As(err, &backward) {
		t.Fatalf("Backward() error = %v, want BackwardConversionError", err)
	}
	if _, from := conv.counts(); from != 0 {
		t.Errorf("FromSemantic called %d times, want 0", from)
	}
}

func TestRoundTrip_Errors(t *testing.T) {
	ctx := context.Background()

	rt := newRoundTrip(&stubConverter{toErr: errors.New("unparseable")})
	_, err := rt.Forward(ctx, "<p")
	var conversion *domain.ConversionError
	if !errors.As(err, &conversion) {
		t.Errorf("Forward() error = %v, want ConversionError", err)
	}

	rt = newRoundTrip(&stubConverter{fromErr: errors.New("merge failed")})
	if _, err := rt.Forward(ctx, "<p/>"); err != nil {
		t.Fatal(err)
	}
	_, err = rt.Backward(ctx, "x")
	var backward *domain.BackwardConversionError
	if !errors.As(err, &backward) {
		t.Errorf("Backward() error = %v, want BackwardConversionError", err)
	}
}
