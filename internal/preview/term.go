package preview

import (
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/digitalled/model"
)

const ledRune = '●'

// Terminal draws transmitted frames as a row of colored dots, wrapping at the
// screen width.
type Terminal struct {
	mu     sync.Mutex
	screen tcell.Screen
	leds   int
}

// NewTerminal takes over the screen. A nil screen opens the controlling
// terminal.
func NewTerminal(s tcell.Screen) (*Terminal, error) {
	if s == nil {
		var err error
		if s, err = tcell.NewScreen(); err != nil {
			return nil, err
		}
	}
	if err := s.Init(); err != nil {
		return nil, err
	}
	s.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack))
	s.Clear()
	return &Terminal{screen: s}, nil
}

// PublishFrame has the same contract as Hub.PublishFrame.
func (t *Terminal) PublishFrame(frame []byte) {
	leds, err := model.DecodeFrame(frame)
	if err != nil {
		log.Debug().Err(err).Msg("terminal: dropping frame")
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	w, _ := t.screen.Size()
	if w <= 0 {
		return
	}
	if len(leds) != t.leds {
		t.screen.Clear()
		t.leds = len(leds)
	}
	im := model.Image(leds)
	for i := range leds {
		c := im.NRGBAAt(i, 0)
		st := tcell.StyleDefault.Background(tcell.ColorBlack).
			Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
		t.screen.SetContent(i%w, i/w, ledRune, nil, st)
	}
	t.screen.Show()
}

// Run handles terminal events until the user quits with q, Esc or Ctrl-C,
// then calls quit. It returns once the screen is closed.
func (t *Terminal) Run(quit func()) {
	for {
		ev := t.screen.PollEvent()
		switch ev := ev.(type) {
		case nil:
			return
		case *tcell.EventResize:
			t.mu.Lock()
			t.screen.Clear()
			t.leds = 0
			t.mu.Unlock()
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
				quit()
			}
		}
	}
}

// Close restores the terminal.
func (t *Terminal) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.screen.Fini()
}
