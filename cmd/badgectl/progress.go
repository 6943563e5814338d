package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/moffa90/go-badgelink/badge"
)

// progressBar renders transfer progress on a single terminal line.
type progressBar struct {
	mu    sync.Mutex
	out   io.Writer
	width int
	last  string
}

func newProgressBar(out io.Writer, width int) *progressBar {
	return &progressBar{out: out, width: width}
}

// Render returns the bar for a completion fraction in [0, 1].
func (pb *progressBar) Render(fraction float64) string {
	filled := int(float64(pb.width) * fraction)
	if filled > pb.width {
		filled = pb.width
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("#", filled) + strings.Repeat(".", pb.width-filled)
	return fmt.Sprintf("[%s] %5.1f%%", bar, fraction*100)
}

// Update is a badge.ProgressCallback.
func (pb *progressBar) Update(p badge.Progress) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if p.Phase == badge.PhaseComplete {
		fmt.Fprintf(pb.out, "\r%s %-16s %s\n", pb.Render(1), p.Phase, p.Elapsed.Round(time.Millisecond))
		pb.last = ""
		return
	}

	var line string
	if p.Total < 0 {
		line = fmt.Sprintf("%-16s %d bytes", p.Phase, p.Bytes)
	} else {
		line = fmt.Sprintf("%s %-16s %d/%d", pb.Render(p.Fraction), p.Phase, p.Bytes, p.Total)
	}
	if line != pb.last {
		fmt.Fprintf(pb.out, "\r%s", line)
		pb.last = line
	}
}
