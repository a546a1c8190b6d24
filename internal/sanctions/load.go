package sanctions

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadCountryCodes reads one ISO 3166-1 numeric country code per line
// from path, skipping blank lines and "#"-prefixed comments. Used at
// boot to seed the Screener from ZEROID_SANCTIONS_LIST_PATH.
func LoadCountryCodes(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sanctions: open list: %w", err)
	}
	defer f.Close()

	var codes []int64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		code, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sanctions: parse country code %q: %w", line, err)
		}
		codes = append(codes, code)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("sanctions: scan list: %w", err)
	}
	return codes, nil
}
