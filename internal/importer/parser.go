package importer

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/recall/internal/domain"
)

const (
	titlePrefix       = "T:"
	subjectPrefix     = "S:"
	descriptionPrefix = "D:"
	levelPrefix       = "L:"
)

type state int

const (
	seeking state = iota
	readingTitle
	readingSubject
	readingDescription
	readingLevel
)

// Entry is one concept definition parsed from a markdown file, before it
// gets an id or any review state.
type Entry struct {
	Title       string
	Subject     string
	Description string
	Difficulty  domain.Difficulty
}

// ParseFile reads a file from the given path and extracts all entries.
func ParseFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all concept entries. Entries
// are blocks of T:/S:/D:/L: prefixed fields (title, subject, description,
// level), separated by "---" lines; field values may span multiple lines.
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var entries []Entry
	var current Entry
	var currentBlock []string
	currentState := seeking

	flushBlock := func() {
		if len(currentBlock) == 0 {
			return
		}
		content := strings.Join(currentBlock, "\n")
		switch currentState {
		case readingTitle:
			current.Title = content
		case readingSubject:
			current.Subject = content
		case readingDescription:
			current.Description = content
		case readingLevel:
			current.Difficulty = domain.ParseDifficulty(strings.TrimSpace(content))
		}
		currentBlock = nil
	}

	finishEntry := func() {
		flushBlock()
		if current.Title != "" {
			if current.Difficulty == "" {
				current.Difficulty = domain.Medium
			}
			entries = append(entries, current)
		}
		current = Entry{}
		currentState = seeking
	}

	startBlock := func(s state, line, prefix string) {
		flushBlock()
		if s == readingTitle && currentState != seeking {
			// A new title always starts a new entry.
			finishEntry()
		}
		currentState = s
		content := strings.TrimPrefix(line, prefix)
		if strings.HasPrefix(content, " ") {
			content = content[1:]
		}
		currentBlock = append(currentBlock, content)
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "---":
			finishEntry()
		case strings.HasPrefix(line, titlePrefix):
			startBlock(readingTitle, line, titlePrefix)
		case strings.HasPrefix(line, subjectPrefix):
			startBlock(readingSubject, line, subjectPrefix)
		case strings.HasPrefix(line, descriptionPrefix):
			startBlock(readingDescription, line, descriptionPrefix)
		case strings.HasPrefix(line, levelPrefix):
			startBlock(readingLevel, line, levelPrefix)
		case currentState != seeking:
			currentBlock = append(currentBlock, line)
		}
	}

	finishEntry() // Finish the very last entry in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
