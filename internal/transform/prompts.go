package transform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harrison/megacoder/internal/models"
)

// ErrMissingInput is returned when a role's required input is empty.
var ErrMissingInput = errors.New("missing transform input")

// DefaultLanguage is the target language named in prompts.
const DefaultLanguage = "Python"

// Inputs carries everything a prompt template may reference.
type Inputs struct {
	Description string // generate
	Code        string // fix, optimize, lint-fix
	Error       string // fix
	LintReport  string // lint-fix
	Language    string // defaults to DefaultLanguage
}

func (in Inputs) language() string {
	if in.Language == "" {
		return DefaultLanguage
	}
	return in.Language
}

// BuildPrompt renders the template for role. Same role and inputs always
// produce the same prompt.
func BuildPrompt(role models.Role, in Inputs) (string, error) {
	if err := role.Validate(); err != nil {
		return "", err
	}
	if err := requireInputs(role, in); err != nil {
		return "", err
	}

	lang := in.language()
	var sb strings.Builder

	switch role {
	case models.RoleGenerate:
		fmt.Fprintf(&sb, "Write a %s program based on the following description:\n\n", lang)
		fmt.Fprintf(&sb, "\"\"\"%s\"\"\"\n\n", in.Description)
		sb.WriteString("Important requirements:\n")
		sb.WriteString("- The program must NOT read from standard input\n")
		sb.WriteString("- The program must NOT use command line arguments\n")
		sb.WriteString("- The code must be fully runnable\n")
		sb.WriteString("- Include ASSERTS for correctness\n")
		fmt.Fprintf(&sb, "- Return ONLY %s code\n", lang)

	case models.RoleFix:
		fmt.Fprintf(&sb, "Fix the following %s code. It failed when executed.\n\n", lang)
		writeCode(&sb, in.Code)
		sb.WriteString("Error message:\n")
		sb.WriteString(in.Error)
		sb.WriteString("\n\n")
		fmt.Fprintf(&sb, "Fix everything completely. Return ONLY valid %s code.\n", lang)

	case models.RoleOptimize:
		fmt.Fprintf(&sb, "The following %s code runs correctly and contains ASSERTS.\n", lang)
		sb.WriteString("Optimize it to run FASTER but keep all asserts EXACTLY as they are.\n\n")
		fmt.Fprintf(&sb, "Return ONLY optimized %s code.\n\n", lang)
		writeCode(&sb, in.Code)

	case models.RoleLintFix:
		fmt.Fprintf(&sb, "The following %s code runs correctly but the linter reported issues.\n", lang)
		sb.WriteString("Fix every reported issue without changing the program's behavior.\n")
		sb.WriteString("Keep all asserts EXACTLY as they are.\n\n")
		writeCode(&sb, in.Code)
		sb.WriteString("Linter report:\n")
		sb.WriteString(in.LintReport)
		sb.WriteString("\n\n")
		fmt.Fprintf(&sb, "Return ONLY valid %s code.\n", lang)
	}

	return sb.String(), nil
}

func writeCode(sb *strings.Builder, code string) {
	sb.WriteString("--- CODE START ---\n")
	sb.WriteString(code)
	if !strings.HasSuffix(code, "\n") {
		sb.WriteByte('\n')
	}
	sb.WriteString("--- CODE END ---\n\n")
}

func requireInputs(role models.Role, in Inputs) error {
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	switch role {
	case models.RoleGenerate:
		check("description", in.Description)
	case models.RoleFix:
		check("code", in.Code)
		check("error", in.Error)
	case models.RoleOptimize:
		check("code", in.Code)
	case models.RoleLintFix:
		check("code", in.Code)
		check("lint report", in.LintReport)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%s: %w: %s", role, ErrMissingInput, strings.Join(missing, ", "))
	}
	return nil
}
