package indicator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueMatch
	cueMiss
	cueError
)

const (
	cueSampleRate = 16000
	cueFade       = 5 * time.Millisecond
	cueGap        = 22 * time.Millisecond
)

// note is one sine tone of a cue.
type note struct {
	hz   float64
	dur  time.Duration
	gain float64
}

// melody is a cue: notes played in order with a short silence between them.
type melody []note

var melodies = map[cueKind]melody{
	cueStart: {{hz: 880, dur: 70 * time.Millisecond, gain: 0.18}, {hz: 1175, dur: 70 * time.Millisecond, gain: 0.18}},
	cueMatch: {{hz: 740, dur: 65 * time.Millisecond, gain: 0.18}, {hz: 988, dur: 90 * time.Millisecond, gain: 0.18}},
	cueMiss:  {{hz: 620, dur: 120 * time.Millisecond, gain: 0.14}},
	cueError: {{hz: 480, dur: 75 * time.Millisecond, gain: 0.18}, {hz: 360, dur: 90 * time.Millisecond, gain: 0.18}},
}

var renderedCues = sync.OnceValue(func() map[cueKind][]int16 {
	out := make(map[cueKind][]int16, len(melodies))
	for kind, m := range melodies {
		out[kind] = m.render()
	}
	return out
})

// cueSamples returns the PCM for kind, rendered once per process.
func cueSamples(kind cueKind) []int16 {
	return renderedCues()[kind]
}

func (m melody) render() []int16 {
	if len(m) == 0 {
		return nil
	}
	gap := sampleCount(cueGap)
	pcm := make([]int16, 0, len(m)*(sampleCount(m[0].dur)+gap))
	for i, n := range m {
		if i > 0 {
			pcm = append(pcm, make([]int16, gap)...)
		}
		pcm = append(pcm, n.render()...)
	}
	return pcm
}

// render synthesizes n with raised-cosine fades at both ends.
func (n note) render() []int16 {
	count := sampleCount(n.dur)
	if count <= 0 || n.hz <= 0 || n.gain <= 0 {
		return nil
	}

	fade := min(max(sampleCount(cueFade), 1), max(count/10, 1))
	step := 2 * math.Pi * n.hz / cueSampleRate
	pcm := make([]int16, count)
	phase := 0.0
	for i := range pcm {
		edge := min(i, count-1-i)
		env := 1.0
		if edge < fade {
			env = 0.5 - 0.5*math.Cos(math.Pi*float64(edge)/float64(fade))
		}
		pcm[i] = int16(math.Round(math.Sin(phase) * n.gain * env * math.MaxInt16))
		phase += step
	}
	return pcm
}

func sampleCount(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}

// cuePlayer plays cues one at a time over a Pulse connection kept across cues.
type cuePlayer struct {
	mu     sync.Mutex
	client *pulse.Client
}

func (p *cuePlayer) emit(ctx context.Context, kind cueKind) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("emit cue: %w", err)
	}
	samples := cueSamples(kind)
	if len(samples) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		client, err := pulse.NewClient(
			pulse.ClientApplicationName("hark"),
			pulse.ClientApplicationIconName("audio-input-microphone"),
		)
		if err != nil {
			return fmt.Errorf("connect pulse server: %w", err)
		}
		p.client = client
	}

	if err := playSamples(ctx, p.client, samples); err != nil {
		p.client.Close()
		p.client = nil
		return err
	}
	return nil
}

func (p *cuePlayer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
}

func playSamples(ctx context.Context, client *pulse.Client, samples []int16) error {
	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("hark indicator cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stop := context.AfterFunc(ctx, stream.Stop)
	defer stop()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	return nil
}
