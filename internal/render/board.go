// Package render draws a board position as a PNG.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/cheese-chess-live/internal/chess"
)

type Options struct {
	// Perspective is the color drawn at the bottom.
	Perspective chess.Color
	// Highlights are tinted, e.g. the legal destinations of a selected piece.
	Highlights []chess.Position
	// Selected is outlined when valid.
	Selected   chess.Position
	SquareSize int
}

const (
	defaultSquare = 64
	margin        = 24
)

var (
	lightSquare    = color.RGBA{233, 207, 163, 255}
	darkSquare     = color.RGBA{187, 136, 96, 255}
	background     = color.RGBA{28, 31, 46, 255}
	highlightFill  = color.NRGBA{R: 255, G: 228, B: 120, A: 150}
	selectedStroke = color.NRGBA{R: 148, G: 207, B: 255, A: 255}
	coordColor     = color.RGBA{204, 210, 236, 255}
)

// PNG renders b. The board is passed by value so callers keep ownership.
func PNG(ctx context.Context, b chess.Board, opts Options) ([]byte, error) {
	img, err := Image(ctx, b, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Image renders b into an RGBA image.
func Image(ctx context.Context, b chess.Board, opts Options) (*image.RGBA, error) {
	sq := opts.SquareSize
	if sq <= 0 {
		sq = defaultSquare
	}
	total := sq*8 + margin*2
	img := image.NewRGBA(image.Rect(0, 0, total, total))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	origin := image.Point{X: margin, Y: margin}

	highlighted := make(map[chess.Position]bool, len(opts.Highlights))
	for _, p := range opts.Highlights {
		highlighted[p] = true
	}

	for rank := 1; rank <= 8; rank++ {
		for file := 1; file <= 8; file++ {
			pos := chess.Pos(rank, file)
			r := SquareRect(pos, opts.Perspective, sq, origin)
			draw.Draw(img, r, image.NewUniform(squareColor(pos)), image.Point{}, draw.Src)
			if highlighted[pos] {
				draw.Draw(img, r, image.NewUniform(highlightFill), image.Point{}, draw.Over)
			}
			if pos == opts.Selected {
				outline(img, r, 3, selectedStroke)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var drawErr error
	b.Each(func(pos chess.Position, p chess.Piece) {
		if drawErr != nil {
			return
		}
		glyph, err := pieceImage(p, sq)
		if err != nil {
			drawErr = err
			return
		}
		r := SquareRect(pos, opts.Perspective, sq, origin)
		draw.Draw(img, r, glyph, image.Point{}, draw.Over)
	})
	if drawErr != nil {
		return nil, drawErr
	}

	drawCoordinates(img, opts.Perspective, sq, origin)
	return img, ctx.Err()
}

// SquareRect is the pixel rectangle of pos for the given perspective.
func SquareRect(pos chess.Position, perspective chess.Color, sq int, origin image.Point) image.Rectangle {
	col, row := pos.File-1, 8-pos.Rank
	if perspective == chess.Black {
		col, row = 8-pos.File, pos.Rank-1
	}
	x := origin.X + col*sq
	y := origin.Y + row*sq
	return image.Rect(x, y, x+sq, y+sq)
}

func squareColor(pos chess.Position) color.Color {
	if (pos.Rank+pos.File)%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func outline(img *image.RGBA, r image.Rectangle, w int, c color.Color) {
	u := image.NewUniform(c)
	draw.Draw(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w), u, image.Point{}, draw.Over)
	draw.Draw(img, image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y), u, image.Point{}, draw.Over)
	draw.Draw(img, image.Rect(r.Min.X, r.Min.Y+w, r.Min.X+w, r.Max.Y-w), u, image.Point{}, draw.Over)
	draw.Draw(img, image.Rect(r.Max.X-w, r.Min.Y+w, r.Max.X, r.Max.Y-w), u, image.Point{}, draw.Over)
}

func drawCoordinates(img *image.RGBA, perspective chess.Color, sq int, origin image.Point) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(coordColor), Face: face}
	ascent := face.Metrics().Ascent.Ceil()
	bottom := origin.Y + 8*sq

	for i := 1; i <= 8; i++ {
		r := SquareRect(chess.Pos(i, i), perspective, sq, origin)
		label := strconv.Itoa(i)
		centered(d, label, origin.X-margin/2, (r.Min.Y+r.Max.Y)/2+ascent/2)
		file := string(rune('a' + i - 1))
		centered(d, file, (r.Min.X+r.Max.X)/2, bottom+(margin+ascent)/2)
	}
}

func centered(d *font.Drawer, s string, cx, baseline int) {
	w := d.MeasureString(s).Ceil()
	d.Dot = fixed.P(cx-w/2, baseline)
	d.DrawString(s)
}
