package mosaic

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gekko3d/mosaic/physics"
)

// imageDepthShare is the part of the container depth an image cube takes up.
const imageDepthShare = 0.5

// Layout places the container and the image grid for one window size.
type Layout struct {
	SceneWidth  float64
	SceneHeight float64
	WindowRatio float64

	ContainerWidth  float64
	ContainerHeight float64
	ContainerDepth  float64
	Thickness       float64

	ImageWidth  float64
	ImageHeight float64

	GridSize   int
	GapPercent float64
}

// Placement is a box and where it goes.
type Placement struct {
	Name     string
	Geometry physics.Geometry
	Position mgl64.Vec3
}

// Cell is one cube of the image grid.
type Cell struct {
	Placement
	Column int
	Row    int
	Tile   Tile
}

// NewLayout sizes the container to the image's proportions inside a scene of
// fixed width. imageRatio is width over height.
func NewLayout(cfg SceneConfig, windowWidth, windowHeight int, imageRatio float64) Layout {
	l := Layout{
		SceneWidth:  cfg.Width,
		WindowRatio: float64(windowHeight) / float64(windowWidth),
		Thickness:   cfg.ContainerThickness,
		GridSize:    cfg.GridSize,
		GapPercent:  cfg.GridGapPercent,
	}
	l.SceneHeight = l.SceneWidth * l.WindowRatio
	l.ContainerDepth = l.SceneWidth*cfg.DepthPercent + l.Thickness

	if imageRatio > l.WindowRatio {
		l.ContainerWidth = l.SceneWidth
		l.ContainerHeight = l.SceneWidth / imageRatio
	} else {
		l.ContainerWidth = l.SceneHeight * imageRatio
		l.ContainerHeight = l.SceneHeight
	}

	// The border is a share of the width on both axes.
	border := l.ContainerWidth * cfg.ContainerBorderPercent
	l.ImageWidth = l.ContainerWidth - border
	l.ImageHeight = l.ContainerHeight - border
	return l
}

// ContainerWalls returns the back wall and the four side walls.
func (l Layout) ContainerWalls() []Placement {
	t := l.Thickness
	w := l.ContainerWidth + t
	h := l.ContainerHeight + t
	d := l.ContainerDepth

	return []Placement{
		{Name: "back", Geometry: physics.BoxGeometry(w, h, t), Position: mgl64.Vec3{0, 0, -d / 2}},
		{Name: "left", Geometry: physics.BoxGeometry(t, h, d), Position: mgl64.Vec3{-w / 2, 0, 0}},
		{Name: "right", Geometry: physics.BoxGeometry(t, h, d), Position: mgl64.Vec3{w / 2, 0, 0}},
		{Name: "top", Geometry: physics.BoxGeometry(w, t, d), Position: mgl64.Vec3{0, h / 2, 0}},
		{Name: "bottom", Geometry: physics.BoxGeometry(w, t, d), Position: mgl64.Vec3{0, -h / 2, 0}},
	}
}

// ImageCubes returns the grid cells column by column. Each cell shows the
// matching 1/n by 1/n tile of the texture.
func (l Layout) ImageCubes() []Cell {
	n := l.GridSize
	if n < 1 {
		return nil
	}

	gap := l.ImageWidth * l.GapPercent
	totalGap := float64(max(n-1, 0)) * gap
	colSize := (l.ImageWidth - totalGap) / float64(n)
	rowSize := (l.ImageHeight - totalGap) / float64(n)
	depth := l.ContainerDepth * imageDepthShare
	left := -l.ImageWidth / 2
	top := -l.ImageHeight / 2
	repeat := 1 / float64(n)

	cells := make([]Cell, 0, n*n)
	for c := 0; c < n; c++ {
		for r := 0; r < n; r++ {
			x := left + colSize*float64(c+1) + gap*float64(c) - colSize/2
			y := top + rowSize*float64(r+1) + gap*float64(r) - rowSize/2
			cells = append(cells, Cell{
				Placement: Placement{
					Geometry: physics.BoxGeometry(colSize, rowSize, depth),
					Position: mgl64.Vec3{x, y, 0},
				},
				Column: c,
				Row:    r,
				Tile: Tile{
					Offset: mgl64.Vec2{float64(c) / float64(n), float64(r) / float64(n)},
					Repeat: mgl64.Vec2{repeat, repeat},
				},
			})
		}
	}
	return cells
}
