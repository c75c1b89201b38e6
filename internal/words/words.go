package words

import (
	"bufio"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
)

var ErrEmptyList = errors.New("empty word list")

// DefaultWords is the built-in list used when no words file is configured.
var DefaultWords = []string{
	"apple", "banana", "bicycle", "bridge", "butterfly",
	"castle", "cat", "cloud", "dragon", "elephant",
	"guitar", "house", "island", "lighthouse", "mountain",
	"pizza", "robot", "rocket", "sailboat", "snowman",
	"spider", "sun", "tree", "umbrella", "whale",
}

// Provider hands out words for drawing rounds, uniformly at random with
// replacement.
type Provider struct {
	list []string
}

func New(list []string) (*Provider, error) {
	if len(list) == 0 {
		return nil, ErrEmptyList
	}
	return &Provider{list: list}, nil
}

// FromFile loads a words file with one word per line. Blank lines and
// surrounding whitespace are ignored.
func FromFile(path string) (*Provider, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open words file: %w", err)
	}
	defer file.Close()

	var list []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word != "" {
			list = append(list, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read words file %s: %w", path, err)
	}

	return New(list)
}

func (p *Provider) Pick() string {
	return p.list[rand.IntN(len(p.list))]
}

func (p *Provider) Len() int {
	return len(p.list)
}
