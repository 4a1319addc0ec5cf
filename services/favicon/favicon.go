// Package favicon turns the account avatar into the console's 32x32 icon.
package favicon

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/afero"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Size is the edge length of the rendered icon.
const Size = 32

const maxAvatarBytes = 5 << 20

// Kind says what the current icon is.
type Kind int

const (
	KindDefault Kind = iota
	KindEmoji
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindEmoji:
		return "emoji"
	case KindImage:
		return "image"
	default:
		return "default"
	}
}

// Result is the outcome of one render. Err is set when the avatar could not
// be loaded, in which case Kind is KindDefault.
type Result struct {
	Kind  Kind
	Emoji string
	Image image.Image
	Err   error
}

type Options struct {
	// BaseURL resolves relative avatar paths such as /uploads/a.png.
	BaseURL    string
	IconPath   string
	Fs         afero.Fs
	HTTPClient *http.Client
}

// Renderer loads avatars and keeps the current icon.
type Renderer struct {
	base       *url.URL
	iconPath   string
	fs         afero.Fs
	httpClient *http.Client
	log        *slog.Logger

	wg      sync.WaitGroup
	mu      sync.Mutex
	current Result
	seq     uint64
}

func New(opts Options) *Renderer {
	r := &Renderer{
		iconPath:   opts.IconPath,
		fs:         opts.Fs,
		httpClient: opts.HTTPClient,
		log:        slog.Default().With("component", "favicon"),
	}
	if u, err := url.Parse(opts.BaseURL); err == nil && u.Host != "" {
		r.base = &url.URL{Scheme: u.Scheme, Host: u.Host}
	}
	if r.fs == nil {
		r.fs = afero.NewOsFs()
	}
	if r.httpClient == nil {
		r.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return r
}

// Render loads avatar in the background. The channel yields exactly one
// Result and is then closed.
func (r *Renderer) Render(ctx context.Context, avatar string) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		out <- r.render(ctx, avatar)
	}()
	return out
}

// Apply renders avatar and installs the result as the current icon without
// blocking the caller. A render superseded by a later Apply or Reset is dropped.
func (r *Renderer) Apply(ctx context.Context, avatar string) {
	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		res := <-r.Render(ctx, avatar)
		if res.Err != nil {
			r.log.Debug("avatar unavailable, using default icon", "error", res.Err)
		}
		r.install(seq, res)
	}()
}

// Reset restores the default icon.
func (r *Renderer) Reset() {
	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.mu.Unlock()
	r.install(seq, Result{Kind: KindDefault})
}

// Wait blocks until every pending Apply has finished.
func (r *Renderer) Wait() {
	r.wg.Wait()
}

// Current returns the installed icon.
func (r *Renderer) Current() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Renderer) install(seq uint64, res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.seq {
		return
	}
	r.current = res
	if err := r.persistLocked(res); err != nil {
		r.log.Warn("write icon failed", "path", r.iconPath, "error", err)
	}
}

func (r *Renderer) persistLocked(res Result) error {
	if r.iconPath == "" {
		return nil
	}
	if res.Kind != KindImage {
		if err := r.fs.Remove(r.iconPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	if err := r.fs.MkdirAll(filepath.Dir(r.iconPath), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, res.Image); err != nil {
		return err
	}
	return afero.WriteFile(r.fs, r.iconPath, buf.Bytes(), 0o644)
}

func (r *Renderer) render(ctx context.Context, avatar string) Result {
	avatar = strings.TrimSpace(avatar)
	if avatar == "" {
		return Result{Kind: KindDefault}
	}
	if IsEmoji(avatar) {
		return Result{Kind: KindEmoji, Emoji: avatar}
	}

	data, err := r.load(ctx, avatar)
	if err != nil {
		return Result{Kind: KindDefault, Err: err}
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{Kind: KindDefault, Err: fmt.Errorf("decode avatar: %w", err)}
	}
	return Result{Kind: KindImage, Image: Circle(src)}
}

func (r *Renderer) load(ctx context.Context, avatar string) ([]byte, error) {
	if strings.HasPrefix(avatar, "data:") {
		return decodeDataURL(avatar)
	}

	u, err := url.Parse(avatar)
	if err != nil {
		return nil, fmt.Errorf("parse avatar url: %w", err)
	}
	if !u.IsAbs() {
		if r.base == nil {
			return nil, fmt.Errorf("relative avatar url %q without base url", avatar)
		}
		u = r.base.ResolveReference(u)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch avatar: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch avatar: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxAvatarBytes))
}

func decodeDataURL(s string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data url")
	}
	if strings.HasSuffix(meta, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return nil, err
	}
	return []byte(unescaped), nil
}

// IsEmoji reports whether avatar is a short emoji rather than an image reference.
func IsEmoji(avatar string) bool {
	if avatar == "" || utf8.RuneCountInString(avatar) > 2 {
		return false
	}
	for _, r := range avatar {
		if r >= 0x1F000 || unicode.Is(unicode.So, r) {
			return true
		}
	}
	return false
}

// Circle scales src to Size x Size and clips it to the inscribed circle.
func Circle(src image.Image) *image.RGBA {
	scaled := image.NewRGBA(image.Rect(0, 0, Size, Size))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := image.NewRGBA(scaled.Bounds())
	draw.DrawMask(out, out.Bounds(), scaled, image.Point{}, circleMask{r: Size / 2}, image.Point{}, draw.Over)
	return out
}

type circleMask struct{ r int }

func (c circleMask) ColorModel() color.Model { return color.AlphaModel }
func (c circleMask) Bounds() image.Rectangle { return image.Rect(0, 0, 2*c.r, 2*c.r) }

func (c circleMask) At(x, y int) color.Color {
	// Sample at pixel centres.
	dx := float64(x) + 0.5 - float64(c.r)
	dy := float64(y) + 0.5 - float64(c.r)
	if dx*dx+dy*dy <= float64(c.r*c.r) {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}
