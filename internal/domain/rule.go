package domain

// RuleConfig defines a configurable advisory rule. Advisory rules are CEL
// expressions evaluated against the finished decision; a rule that fires
// appends a flag to the audit payload but never changes the verdict, so the
// fixed decision ladder stays deterministic regardless of configuration.
type RuleConfig struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// CEL expression over the decision variables; must return bool
	Expression string `json:"expression"`

	// Reason attached to the flag when the rule fires
	Reason string `json:"reason"`

	// Whether rule is active
	Enabled bool `json:"enabled"`
}

// RuleFlag is the output of an advisory rule that fired.
type RuleFlag struct {
	RuleID    string `json:"ruleId"`
	Name      string `json:"name"`
	Reason    string `json:"reason"`
	ProcessMs int64  `json:"processMs"`
}
