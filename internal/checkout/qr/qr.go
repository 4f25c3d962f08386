// Package qr turns a charge's PIX payload into something the user can scan
// or copy. Provider-supplied base64 images are only trusted after sniffing
// the payload prefix; otherwise the code falls back through a remote
// renderer, an on-device generator and finally plain text.
package qr

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// RenderKind says how the payload ended up being presented.
type RenderKind string

const (
	// RenderImage is a raster image decoded from provider-supplied base64.
	RenderImage RenderKind = "image"
	// RenderRemote is a PNG fetched from the remote QR renderer.
	RenderRemote RenderKind = "remote"
	// RenderLocal is a PNG generated on-device.
	RenderLocal RenderKind = "local"
	// RenderText means no image could be produced; only the copyable code.
	RenderText RenderKind = "text"
)

const remoteRenderURL = "https://api.qrserver.com/v1/create-qr-code/"

// Result is a rendered PIX payment method. CopyText carries the EMV code
// verbatim whenever the charge had one, regardless of how the image turned
// out.
type Result struct {
	Kind     RenderKind
	PNG      []byte
	CopyText string
}

// Renderer renders PIX payloads.
type Renderer struct {
	hc  *http.Client
	log *zap.SugaredLogger

	// remoteURL is swappable in tests.
	remoteURL string
}

func NewRenderer(log *zap.SugaredLogger) *Renderer {
	return &Renderer{
		hc:        &http.Client{Timeout: 10 * time.Second},
		log:       log,
		remoteURL: remoteRenderURL,
	}
}

// imagePrefixes are the accepted starts of a base64 image payload: a data
// URI, a JPEG stream and a PNG stream.
var imagePrefixes = []string{"data:image", "/9j/", "iVBOR"}

// LooksLikeImage reports whether a base64 payload sniffs as an actual image
// encoding. Content-type claims from the provider are not trusted.
func LooksLikeImage(payload string) bool {
	for _, p := range imagePrefixes {
		if strings.HasPrefix(payload, p) {
			return true
		}
	}
	return false
}

// Render produces the best available presentation for the given payloads.
// An error is returned only when there is nothing actionable at all.
func (r *Renderer) Render(ctx context.Context, imageBase64, text string) (*Result, error) {
	if LooksLikeImage(imageBase64) {
		if png, err := decodeImagePayload(imageBase64); err == nil {
			return &Result{Kind: RenderImage, PNG: png, CopyText: text}, nil
		} else {
			r.log.Warnw("provider image payload did not decode", "error", err)
		}
	}

	if text == "" {
		return nil, fmt.Errorf("charge has no usable pix payload")
	}

	if png, err := r.renderRemote(ctx, text); err == nil {
		return &Result{Kind: RenderRemote, PNG: png, CopyText: text}, nil
	} else {
		r.log.Warnw("remote qr render failed, generating locally", "error", err)
	}

	if png, err := qrcode.Encode(text, qrcode.Medium, 256); err == nil {
		return &Result{Kind: RenderLocal, PNG: png, CopyText: text}, nil
	} else {
		r.log.Warnw("local qr render failed, degrading to text", "error", err)
	}

	return &Result{Kind: RenderText, CopyText: text}, nil
}

func (r *Renderer) renderRemote(ctx context.Context, text string) ([]byte, error) {
	q := url.Values{}
	q.Set("size", "256x256")
	q.Set("data", text)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.remoteURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote renderer answered %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

func decodeImagePayload(payload string) ([]byte, error) {
	if i := strings.Index(payload, ","); strings.HasPrefix(payload, "data:image") && i >= 0 {
		payload = payload[i+1:]
	}
	return base64.StdEncoding.DecodeString(payload)
}
