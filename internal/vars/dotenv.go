package vars

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/unkn0wn-root/wsterm/internal/errdef"
)

const dotEnvDefaultName = "default"

// detection keeps JSON discovery stable by requiring names that intentionally look like .env files
func IsDotEnvPath(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(base, ".json") {
		return false
	}
	return base == ".env" || strings.HasPrefix(base, ".env.") || strings.HasSuffix(base, ".env")
}

func loadDotEnvEnvironment(path string) (envs EnvironmentSet, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "open env file %s", path)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = errdef.Wrap(errdef.CodeFilesystem, closeErr, "close env file %s", path)
		}
	}()

	values := make(map[string]string)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNumber := 0
	for scanner.Scan() {
		// lines resolve in order so expansion can only see keys defined above
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if lower := strings.ToLower(line); strings.HasPrefix(lower, "export ") {
			line = strings.TrimSpace(line[len("export"):])
		}

		idx := strings.IndexRune(line, '=')
		if idx < 0 {
			return nil, errdef.New(errdef.CodeParse, "dotenv line %d: expected KEY=value", lineNumber)
		}
		key := strings.TrimSpace(line[:idx])
		if key == "" {
			return nil, errdef.New(errdef.CodeParse, "dotenv line %d: missing key", lineNumber)
		}

		value, literal, err := parseDotEnvValue(strings.TrimSpace(line[idx+1:]), lineNumber)
		if err != nil {
			return nil, err
		}
		if !literal {
			// single quotes purposely stay literal so '${TOKEN}' never expands
			expanded, err := expandDotEnvValue(value, values, lineNumber)
			if err != nil {
				return nil, err
			}
			value = expanded
		}
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "read env file %s", path)
	}

	envs = EnvironmentSet{deriveDotEnvName(path): values}
	return envs, nil
}

func parseDotEnvValue(raw string, lineNumber int) (value string, literal bool, err error) {
	if raw == "" {
		return "", false, nil
	}

	switch raw[0] {
	case '\'', '"':
		quote := raw[0]
		var b strings.Builder
		for i := 1; i < len(raw); i++ {
			ch := raw[i]
			if ch == '\\' && quote == '"' {
				if i+1 >= len(raw) {
					return "", false, errdef.New(errdef.CodeParse, "dotenv line %d: unfinished escape", lineNumber)
				}
				i++
				b.WriteByte(resolveDoubleQuoteEscape(raw[i]))
				continue
			}
			if ch == quote {
				rest := strings.TrimSpace(raw[i+1:])
				if rest != "" && rest[0] != '#' && rest[0] != ';' {
					return "", false, errdef.New(
						errdef.CodeParse,
						"dotenv line %d: unexpected content after quoted value",
						lineNumber,
					)
				}
				return b.String(), quote == '\'', nil
			}
			b.WriteByte(ch)
		}
		return "", false, errdef.New(errdef.CodeParse, "dotenv line %d: unterminated quoted value", lineNumber)
	default:
		return stripInlineComment(raw), false, nil
	}
}

func stripInlineComment(value string) string {
	inWhitespace := false
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case ' ', '\t':
			inWhitespace = true
		case '#', ';':
			if i == 0 || inWhitespace {
				return strings.TrimSpace(value[:i])
			}
			inWhitespace = false
		default:
			inWhitespace = false
		}
	}
	return strings.TrimSpace(value)
}

func expandDotEnvValue(value string, resolved map[string]string, lineNumber int) (string, error) {
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if ch == '\\' && i+1 < len(value) && value[i+1] == '$' {
			b.WriteByte('$')
			i++
			continue
		}
		if ch != '$' || i+1 >= len(value) {
			b.WriteByte(ch)
			continue
		}
		if value[i+1] == '{' {
			end := strings.IndexByte(value[i+2:], '}')
			if end < 0 {
				return "", errdef.New(errdef.CodeParse, "dotenv line %d: missing closing brace for ${", lineNumber)
			}
			end += i + 2
			name := strings.TrimSpace(value[i+2 : end])
			if name == "" {
				return "", errdef.New(errdef.CodeParse, "dotenv line %d: empty variable name", lineNumber)
			}
			replacement, err := resolveDotEnvRef(name, resolved, lineNumber)
			if err != nil {
				return "", err
			}
			b.WriteString(replacement)
			i = end
			continue
		}
		if isDotEnvNameChar(value[i+1]) {
			j := i + 1
			for j < len(value) && isDotEnvNameChar(value[j]) {
				j++
			}
			replacement, err := resolveDotEnvRef(value[i+1:j], resolved, lineNumber)
			if err != nil {
				return "", err
			}
			b.WriteString(replacement)
			i = j - 1
			continue
		}
		b.WriteByte(ch)
	}
	return b.String(), nil
}

func resolveDotEnvRef(name string, resolved map[string]string, lineNumber int) (string, error) {
	if value, ok := resolved[name]; ok {
		return value, nil
	}
	// OS env fallback keeps secrets out of the dotenv file itself
	if envValue, ok := os.LookupEnv(name); ok {
		return envValue, nil
	}
	if envValue, ok := os.LookupEnv(strings.ToUpper(name)); ok {
		return envValue, nil
	}
	return "", errdef.New(errdef.CodeParse, "dotenv line %d: variable %q is not defined", lineNumber, name)
}

func isDotEnvNameChar(ch byte) bool {
	switch {
	case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		return true
	}
	return ch == '_'
}

func resolveDoubleQuoteEscape(ch byte) byte {
	switch ch {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case '"':
		return '"'
	case '\\':
		return '\\'
	default:
		return ch
	}
}

func deriveDotEnvName(path string) string {
	base := filepath.Base(path)
	lower := strings.ToLower(base)
	switch {
	case lower == ".env":
		return dotEnvDefaultName
	case strings.HasPrefix(lower, ".env.") && len(base) > len(".env."):
		return strings.TrimSpace(base[len(".env."):])
	case strings.HasSuffix(lower, ".env") && len(base) > len(".env"):
		return strings.TrimSpace(base[:len(base)-len(".env")])
	}
	stem := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		return dotEnvDefaultName
	}
	return stem
}
