package words

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const defaultNumPatches = 12

// defaultChars is the keyboard alphabet shown on non-fixed patches.
var defaultChars = strings.Split("abcdefghijklmnopqrstuvwxyz1234567890", "")

// Config tunes the word bag. Zero values fall back to the stock keyboard.
type Config struct {
	NumPatches     int
	FixedPositions map[int]string
	OtherChars     []string
}

// Bag feeds the SSVEP keyboard: a shuffled character layout with fixed
// control patches, plus the operator-authored cue sequence whose head is
// planted on a random patch as the next target.
type Bag struct {
	mu             sync.Mutex
	numPatches     int
	fixedPositions map[int]string
	otherChars     []string
	cueSequence    []string
	prompt         []string
}

// NewBag constructs a word bag with the supplied configuration.
func NewBag(cfg Config) *Bag {
	numPatches := cfg.NumPatches
	if numPatches <= 0 {
		numPatches = defaultNumPatches
	}
	fixed := cfg.FixedPositions
	if fixed == nil {
		fixed = map[int]string{10: "Back", 11: "Space", 12: "Enter"}
	}
	chars := cfg.OtherChars
	if len(chars) == 0 {
		chars = append([]string(nil), defaultChars...)
	}
	return &Bag{
		numPatches:     numPatches,
		fixedPositions: fixed,
		otherChars:     chars,
	}
}

// LoadCueSequence replaces the pending cue sequence.
func (b *Bag) LoadCueSequence(cues []string) {
	b.mu.Lock()
	b.cueSequence = append([]string(nil), cues...)
	b.mu.Unlock()
	logrus.WithField("cues", len(cues)).Debug("loaded cue sequence")
}

// AppendCue splits the text into single-character cues and appends them to
// the pending sequence. Empty input is ignored.
func (b *Bag) AppendCue(text string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range text {
		b.cueSequence = append(b.cueSequence, string(r))
	}
	return append([]string(nil), b.cueSequence...)
}

// CueSequence returns a copy of the pending cues.
func (b *Bag) CueSequence() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.cueSequence...)
}

// MakeLayout builds one keyboard layout: shuffled characters with the fixed
// control patches applied, and the head of the cue sequence planted at a
// random non-fixed index. The cue index is -1 when no cue is pending.
func (b *Bag) MakeLayout() ([]string, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	free := make([]int, 0, b.numPatches)
	for i := 0; i < b.numPatches; i++ {
		if _, fixed := b.fixedPositions[i]; !fixed {
			free = append(free, i)
		}
	}

	rand.Shuffle(len(b.otherChars), func(i, j int) {
		b.otherChars[i], b.otherChars[j] = b.otherChars[j], b.otherChars[i]
	})

	sequence := make([]string, b.numPatches)
	for i := range sequence {
		sequence[i] = b.otherChars[i%len(b.otherChars)]
	}
	for idx, label := range b.fixedPositions {
		if idx >= 0 && idx < len(sequence) {
			sequence[idx] = label
		}
	}

	cueIndex := -1
	if len(b.cueSequence) > 0 && len(free) > 0 {
		cueIndex = free[rand.Intn(len(free))]
		sequence[cueIndex] = b.cueSequence[0]
	}
	return sequence, cueIndex
}

// Consume pops and returns the head of the cue sequence iff it equals the
// input. A mismatch or an empty sequence leaves the sequence untouched.
func (b *Bag) Consume(inp string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.cueSequence) == 0 {
		return "", false
	}
	if b.cueSequence[0] != inp {
		return "", false
	}
	head := b.cueSequence[0]
	b.cueSequence = b.cueSequence[1:]
	return head, true
}

// AppendPrompt appends non-empty input to the prompt history and returns
// the accumulated prompt.
func (b *Bag) AppendPrompt(inp string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if inp != "" {
		b.prompt = append(b.prompt, inp)
	}
	return append([]string(nil), b.prompt...)
}

// Prompt returns a copy of the accumulated prompt.
func (b *Bag) Prompt() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.prompt...)
}
