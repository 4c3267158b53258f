package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/cheese-chess-live/internal/chess"
)

// Glyph bodies on a 45x45 canvas. FILL and STROKE are substituted per color.
var glyphs = map[chess.PieceType]string{
	chess.Pawn: `<circle cx="22.5" cy="14" r="5.5"/>
<path d="M 15 36 L 17.5 23 L 27.5 23 L 30 36 Z"/>
<rect x="11" y="36" width="23" height="4"/>`,
	chess.Rook: `<path d="M 11 9 L 15 9 L 15 12 L 20 12 L 20 9 L 25 9 L 25 12 L 30 12 L 30 9 L 34 9 L 34 16 L 11 16 Z"/>
<rect x="14" y="16" width="17" height="18"/>
<rect x="10" y="34" width="25" height="5"/>`,
	chess.Knight: `<path d="M 14 38 L 31 38 L 31 19 C 31 12 26 8 20 8 L 19 11 L 14 13 L 10 21 L 13 24 L 18 21 L 20 23 C 16 27 14 32 14 38 Z"/>
<circle cx="17" cy="14" r="1.2"/>`,
	chess.Bishop: `<circle cx="22.5" cy="8" r="2.5"/>
<ellipse cx="22.5" cy="20" rx="7" ry="9"/>
<path d="M 17 29 L 28 29 L 30 35 L 15 35 Z"/>
<rect x="10" y="35" width="25" height="4"/>`,
	chess.Queen: `<path d="M 10 14 L 15 28 L 18 12 L 22.5 27 L 27 12 L 30 28 L 35 14 L 32 34 L 13 34 Z"/>
<rect x="11" y="34" width="23" height="5"/>
<circle cx="10" cy="12" r="2"/><circle cx="18" cy="10" r="2"/><circle cx="27" cy="10" r="2"/><circle cx="35" cy="12" r="2"/>`,
	chess.King: `<path d="M 21 4 L 24 4 L 24 8 L 28 8 L 28 11 L 24 11 L 24 15 L 21 15 L 21 11 L 17 11 L 17 8 L 21 8 Z"/>
<path d="M 11 22 C 11 15 34 15 34 22 L 31 34 L 14 34 Z"/>
<rect x="11" y="34" width="23" height="5"/>`,
}

func pieceSVG(p chess.Piece) (string, error) {
	body, ok := glyphs[p.Type]
	if !ok {
		return "", fmt.Errorf("no glyph for %s", p.Type)
	}
	fill, stroke := "#ffffff", "#1b1b1b"
	if p.Color == chess.Black {
		fill, stroke = "#1b1b1b", "#f2f2f2"
	}
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">`)
	fmt.Fprintf(&b, `<g fill="%s" stroke="%s" stroke-width="1.5" stroke-linejoin="round">`, fill, stroke)
	b.WriteString(body)
	b.WriteString(`</g></svg>`)
	return b.String(), nil
}

type cacheKey struct {
	piece chess.Piece
	size  int
}

var (
	pieceCache   = map[cacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func pieceImage(p chess.Piece, size int) (image.Image, error) {
	key := cacheKey{piece: p, size: size}
	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	src, err := pieceSVG(p)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}
