// Package vision provides the colour segmentation and frame normalisation
// used by the tracking loop.
package vision

import (
	"image"
	"sort"
)

// Blob is one connected region of target-coloured pixels.
type Blob struct {
	Contour   []image.Point // boundary pixels
	Area      int           // pixel count
	CentroidX int
	CentroidY int
	Bounds    image.Rectangle
}

// Centroid returns the blob's tracked point.
func (b Blob) Centroid() image.Point {
	return image.Pt(b.CentroidX, b.CentroidY)
}

// Segmenter returns up to count blobs ranked by area, largest first.
type Segmenter interface {
	TopBlobs(img image.Image, count int) ([]Blob, error)
}

// rankBlobs sorts by area descending and truncates to count. Equal areas keep
// their discovery (raster) order.
func rankBlobs(blobs []Blob, count int) []Blob {
	sort.SliceStable(blobs, func(i, j int) bool { return blobs[i].Area > blobs[j].Area })
	if count >= 0 && len(blobs) > count {
		blobs = blobs[:count]
	}
	return blobs
}

// components labels 4-connected true cells of mask (w*h, row-major) and
// returns one Blob per component with at least minArea cells.
func components(mask []bool, w, h, minArea int) []Blob {
	visited := make([]bool, len(mask))
	var blobs []Blob
	var stack []int

	for start := range mask {
		if !mask[start] || visited[start] {
			continue
		}

		var (
			area       int
			sumX, sumY int
			minX, minY = w, h
			maxX, maxY = -1, -1
			contour    []image.Point
		)

		stack = append(stack[:0], start)
		visited[start] = true
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := idx%w, idx/w

			area++
			sumX += x
			sumY += y
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)

			edge := false
			for _, n := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				nx, ny := n[0], n[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					edge = true
					continue
				}
				nidx := ny*w + nx
				if !mask[nidx] {
					edge = true
					continue
				}
				if !visited[nidx] {
					visited[nidx] = true
					stack = append(stack, nidx)
				}
			}
			if edge {
				contour = append(contour, image.Pt(x, y))
			}
		}

		if area < minArea || area == 0 {
			continue
		}
		blobs = append(blobs, Blob{
			Contour:   contour,
			Area:      area,
			CentroidX: sumX / area,
			CentroidY: sumY / area,
			Bounds:    image.Rect(minX, minY, maxX+1, maxY+1),
		})
	}
	return blobs
}
