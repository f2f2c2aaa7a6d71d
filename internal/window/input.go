package window

import "github.com/veandco/go-sdl2/sdl"

// Input is what happened since the previous Poll.
type Input struct {
	Quit         bool
	Resized      bool
	DragX, DragY float32 // mouse movement with the left button held
	Wheel        float32
}

// Poll drains pending SDL events.
func (w *Window) Poll() Input {
	var in Input
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			in.Quit = true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED {
				in.Resized = true
			}

		case *sdl.KeyboardEvent:
			if e.Type == sdl.KEYDOWN && e.Keysym.Sym == sdl.K_ESCAPE {
				in.Quit = true
			}

		case *sdl.MouseButtonEvent:
			if e.Button == sdl.BUTTON_LEFT {
				w.dragging = e.Type == sdl.MOUSEBUTTONDOWN
			}

		case *sdl.MouseMotionEvent:
			if w.dragging {
				in.DragX += float32(e.XRel)
				in.DragY += float32(e.YRel)
			}

		case *sdl.MouseWheelEvent:
			in.Wheel += float32(e.Y)
		}
	}
	return in
}
