package cocohelper

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLabels reads category names from the given text file, one name per
// line.  A line may carry the supercategory after the name separated by a
// comma.  Blank lines are skipped.
func LoadLabels(file string) ([]Category, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var cats []Category

	for scanner.Scan() {

		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		name, super, _ := strings.Cut(line, ",")

		cats = append(cats, Category{
			ID:            int64(len(cats)),
			Name:          strings.TrimSpace(name),
			Supercategory: strings.TrimSpace(super),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return cats, nil
}
