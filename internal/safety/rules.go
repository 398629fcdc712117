// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package safety

import (
	"fmt"
	"os"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/goccy/go-yaml"
	log "github.com/sirupsen/logrus"
)

// rulesFile is the on-disk shape of a user rules file:
//
//	rules:
//	  - name: no prod terraform
//	    level: critical
//	    when: command matches "^terraform\\s+(apply|destroy)"
//
// The when expression sees `command` (the full command line) and `tool`
// (its first program name) and must evaluate to a boolean.
type rulesFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	Name  string `yaml:"name"`
	Level string `yaml:"level"`
	When  string `yaml:"when"`
}

type compiledRule struct {
	name  string
	level RiskLevel
	prog  *vm.Program
}

var ruleExprEnv = map[string]any{
	"command": "",
	"tool":    "",
}

func loadRules(path string) ([]compiledRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	rules := make([]compiledRule, 0, len(rf.Rules))
	for i, spec := range rf.Rules {
		level, err := parseLevel(spec.Level)
		if err != nil {
			return nil, fmt.Errorf("rule %q (#%d): %w", spec.Name, i+1, err)
		}
		prog, err := expr.Compile(spec.When, expr.Env(ruleExprEnv), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("rule %q (#%d): compile condition: %w", spec.Name, i+1, err)
		}
		rules = append(rules, compiledRule{name: spec.Name, level: level, prog: prog})
	}
	return rules, nil
}

func parseLevel(s string) (RiskLevel, error) {
	switch s {
	case "safe":
		return Safe, nil
	case "moderate":
		return Moderate, nil
	case "dangerous":
		return Dangerous, nil
	case "critical":
		return Critical, nil
	}
	return Safe, fmt.Errorf("unknown risk level %q", s)
}

// matchRules evaluates user rules in order and returns the highest level
// among those that match. A rule that fails to evaluate is skipped with a
// warning rather than failing the whole assessment.
func (c *Classifier) matchRules(command string) (RiskLevel, bool) {
	if len(c.rules) == 0 {
		return Safe, false
	}

	env := map[string]any{
		"command": command,
		"tool":    FirstTool(command),
	}

	matched := false
	highest := Safe
	for _, rule := range c.rules {
		out, err := expr.Run(rule.prog, env)
		if err != nil {
			log.Warnf("safety rule %q failed to evaluate: %v", rule.name, err)
			continue
		}
		if hit, ok := out.(bool); ok && hit {
			matched = true
			if rule.level > highest {
				highest = rule.level
			}
		}
	}
	return highest, matched
}
