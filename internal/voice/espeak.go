package voice

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rbright/hark/internal/i18n"
)

// DefaultProgram is the espeak-compatible synthesizer binary.
const DefaultProgram = "espeak-ng"

const (
	espeakDefaultPitch = 50
	espeakDefaultWPM   = 175
)

// Espeak drives an espeak-ng compatible binary.
type Espeak struct {
	Program string
}

func (e Espeak) program() string {
	if strings.TrimSpace(e.Program) == "" {
		return DefaultProgram
	}
	return e.Program
}

// Voices lists the installed voices.
func (e Espeak) Voices(ctx context.Context) ([]Voice, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.program(), "--voices")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s --voices: %w (%s)", e.program(), err, strings.TrimSpace(stderr.String()))
	}
	return parseVoices(stdout.String()), nil
}

// Speak synthesizes u.Text. Text is passed on stdin.
func (e Espeak) Speak(ctx context.Context, u Utterance) error {
	args := []string{
		"-p", strconv.Itoa(scale(u.Pitch, espeakDefaultPitch, 0, 99)),
		"-s", strconv.Itoa(scale(u.Rate, espeakDefaultWPM, 80, 450)),
	}
	if id := u.Voice.ID; id != "" {
		args = append(args, "-v", id)
	}
	args = append(args, "--stdin")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.program(), args...)
	cmd.Stdin = strings.NewReader(u.Text)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w (%s)", e.program(), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// scale maps a multiplier around 1 onto the synthesizer's native range.
func scale(factor float64, base int, lo int, hi int) int {
	if factor <= 0 {
		factor = 1
	}
	v := int(math.Round(factor * float64(base)))
	return max(lo, min(hi, v))
}

// parseVoices reads the `--voices` table:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US            (en 3)
func parseVoices(out string) []Voice {
	var voices []Voice
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 5 || fields[0] == "Pty" {
			continue
		}
		id := fields[1]
		lang := id
		if tag, err := i18n.CanonicalTag(id); err == nil {
			lang = tag
		}
		voices = append(voices, Voice{
			Name:     strings.ReplaceAll(fields[3], "_", " "),
			Language: lang,
			ID:       id,
		})
	}
	return voices
}
