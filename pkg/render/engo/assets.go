package engo

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math/rand/v2"

	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"
	"golang.org/x/image/font/gofont/goregular"
)

// FontURL is the engo file key the HUD font is registered under
const FontURL = "goregular.ttf"

// Starfield defaults
const (
	StarfieldSize  = 512
	StarfieldStars = 600
)

// AssetManager builds the scene's generated textures and loads the HUD
// font. Nothing is read from disk.
type AssetManager struct {
	seed      uint64
	font      *common.Font
	starfield common.Drawable
}

// NewAssetManager creates an asset manager; seed fixes the starfield
func NewAssetManager(seed uint64) *AssetManager {
	return &AssetManager{seed: seed}
}

// Preload registers the embedded font with engo's file loader
func (am *AssetManager) Preload() error {
	if err := engo.Files.LoadReaderData(FontURL, bytes.NewReader(goregular.TTF)); err != nil {
		return fmt.Errorf("failed to load HUD font: %w", err)
	}
	return nil
}

// Load creates the GPU-side assets. It must run inside engo's Setup.
func (am *AssetManager) Load(fontSize float64) error {
	font := &common.Font{
		URL:  FontURL,
		FG:   color.White,
		Size: fontSize,
	}
	if err := font.CreatePreloaded(); err != nil {
		return fmt.Errorf("failed to create HUD font: %w", err)
	}
	am.font = font

	img := StarfieldImage(StarfieldSize, StarfieldSize, StarfieldStars, am.seed)
	am.starfield = common.NewTextureSingle(common.NewImageObject(img))
	return nil
}

// Font returns the HUD font, or nil before Load
func (am *AssetManager) Font() *common.Font {
	return am.font
}

// Starfield returns the background texture, or nil before Load
func (am *AssetManager) Starfield() common.Drawable {
	return am.starfield
}

// StarfieldImage scatters n faint stars over a transparent w×h image. The
// same seed always gives the same image.
func StarfieldImage(w, h, n int, seed uint64) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w <= 0 || h <= 0 {
		return img
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x5bd1e995))
	for i := 0; i < n; i++ {
		x, y := rng.IntN(w), rng.IntN(h)
		v := uint8(96 + rng.IntN(160))
		img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
	}
	return img
}
