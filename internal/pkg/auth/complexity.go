package auth

import (
	"fmt"
	"strings"
	"unicode"
)

// Symbols 高复杂度要求的特殊字符集合
const Symbols = `!@#$%^&*()_+-=[]{}|;:'",.<>?/`

// ComplexityLevel 密码复杂度级别
type ComplexityLevel string

const (
	ComplexityLow    ComplexityLevel = "LOW"
	ComplexityMedium ComplexityLevel = "MEDIUM"
	ComplexityHigh   ComplexityLevel = "HIGH"
)

// ComplexityRule 单个级别的规则
type ComplexityRule struct {
	Uppercase bool
	Lowercase bool
	Digits    bool
	Symbols   bool
	MinLength int
}

var complexityRules = map[ComplexityLevel]ComplexityRule{
	ComplexityLow:    {MinLength: 6},
	ComplexityMedium: {Uppercase: true, Lowercase: true, Digits: true, MinLength: 6},
	ComplexityHigh:   {Uppercase: true, Lowercase: true, Digits: true, Symbols: true, MinLength: 8},
}

// PasswordPolicy 按配置级别校验密码复杂度
type PasswordPolicy struct {
	level ComplexityLevel
	rule  ComplexityRule
}

// NewPasswordPolicy 未知级别按 HIGH 处理
func NewPasswordPolicy(level string) *PasswordPolicy {
	lv := ComplexityLevel(strings.ToUpper(strings.TrimSpace(level)))
	rule, ok := complexityRules[lv]
	if !ok {
		lv = ComplexityHigh
		rule = complexityRules[ComplexityHigh]
	}
	return &PasswordPolicy{level: lv, rule: rule}
}

// Level 当前级别
func (p *PasswordPolicy) Level() ComplexityLevel { return p.level }

// Rule 当前规则
func (p *PasswordPolicy) Rule() ComplexityRule { return p.rule }

// Validate 返回所有未满足的规则，以 ", " 连接成一条错误
func (p *PasswordPolicy) Validate(password string) error {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case unicode.IsDigit(r) && r < unicode.MaxASCII:
			hasDigit = true
		case strings.ContainsRune(Symbols, r):
			hasSymbol = true
		}
	}

	var problems []string
	if len([]rune(password)) < p.rule.MinLength {
		problems = append(problems, fmt.Sprintf("Password must be at least %d characters long", p.rule.MinLength))
	}
	if p.rule.Uppercase && !hasUpper {
		problems = append(problems, "Password must contain at least one uppercase letter")
	}
	if p.rule.Lowercase && !hasLower {
		problems = append(problems, "Password must contain at least one lowercase letter")
	}
	if p.rule.Digits && !hasDigit {
		problems = append(problems, "Password must contain at least one digit")
	}
	if p.rule.Symbols && !hasSymbol {
		problems = append(problems, "Password must contain at least one symbol")
	}
	if len(problems) > 0 {
		return &ComplexityError{Problems: problems}
	}
	return nil
}

// ComplexityError 密码复杂度不满足
type ComplexityError struct {
	Problems []string
}

func (e *ComplexityError) Error() string {
	return strings.Join(e.Problems, ", ")
}
