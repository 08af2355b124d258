package scanners

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JA3G3R/reviewcrew/types"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

const (
	ruleIAMWildcard     = "IAM Wildcard"
	ruleIAMManualReview = "IAM Manual Review"
)

var resourceTypesWithPolicyJSON = map[string]bool{
	"aws_iam_policy":       true,
	"aws_iam_role_policy":  true,
	"aws_iam_user_policy":  true,
	"aws_iam_group_policy": true,
	"aws_s3_bucket_policy": true,
}

// ScanTerraformPolicies inspects IAM policies declared in one Terraform file.
// Files that do not parse produce no findings here; the static analyzer
// reports the syntax error.
func ScanTerraformPolicies(path string, src []byte) []types.Finding {
	file, diags := hclparse.NewParser().ParseHCL(src, path)
	if diags.HasErrors() {
		return nil
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil
	}

	var out []types.Finding
	for _, blk := range body.Blocks {
		if len(blk.Labels) < 2 {
			continue
		}
		kind, name := blk.Labels[0], blk.Labels[1]
		switch blk.Type {
		case "resource":
			if !resourceTypesWithPolicyJSON[kind] {
				continue
			}
			attr, ok := blk.Body.Attributes["policy"]
			if !ok {
				continue
			}
			ref := fmt.Sprintf("resource.%s.%s", kind, name)
			if raw, ok := staticString(attr.Expr); ok {
				out = append(out, analyzeJSONPolicy(path, ref, raw, attr.Range())...)
			} else {
				out = append(out, policyFinding(path, ref, "", attr.Range(), ruleIAMManualReview, types.SevMedium,
					"Policy attribute is dynamic (jsonencode/interpolation) and could not be analyzed statically",
					"Review the rendered policy for wildcard actions or resources"))
			}
		case "data":
			if kind == "aws_iam_policy_document" {
				out = append(out, analyzePolicyDocument(path, fmt.Sprintf("data.%s.%s", kind, name), blk)...)
			}
		}
	}
	return out
}

type policyDoc struct {
	Version   string       `json:"Version"`
	Statement []policyStmt `json:"Statement"`
}

// strOrList accepts either "string" or ["list","of","strings"].
type strOrList []string

func (s *strOrList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*s = []string{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err == nil {
		*s = many
	}
	return nil
}

type policyStmt struct {
	Sid         string    `json:"Sid"`
	Effect      string    `json:"Effect"`
	Action      strOrList `json:"Action"`
	NotAction   strOrList `json:"NotAction"`
	Resource    strOrList `json:"Resource"`
	NotResource strOrList `json:"NotResource"`
}

func analyzeJSONPolicy(path, ref, raw string, rng hcl.Range) []types.Finding {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var doc policyDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return []types.Finding{policyFinding(path, ref, "", rng, ruleIAMManualReview, types.SevMedium,
			fmt.Sprintf("Could not parse JSON policy: %v", err),
			"Check the policy document for interpolations or invalid JSON")}
	}

	var out []types.Finding
	for i, st := range doc.Statement {
		sid := st.Sid
		if strings.TrimSpace(sid) == "" {
			sid = fmt.Sprintf("#%d", i+1)
		}
		effect := st.Effect
		if strings.TrimSpace(effect) == "" {
			effect = "Allow"
		}
		out = append(out, statementFindings(path, ref, sid, rng, effect, st.Action, st.Resource,
			len(st.NotAction) > 0 || len(st.NotResource) > 0)...)
	}
	return out
}

func analyzePolicyDocument(path, ref string, blk *hclsyntax.Block) []types.Finding {
	var out []types.Finding
	for _, st := range blk.Body.Blocks {
		if st.Type != "statement" {
			continue
		}
		attrs := st.Body.Attributes
		effect := "Allow" // provider default
		if vals, ok := attrStrings(attrs, "effect"); ok && len(vals) > 0 {
			effect = vals[0]
		}
		actions, actionsOK := attrStrings(attrs, "actions")
		resources, resourcesOK := attrStrings(attrs, "resources")
		_, hasNotActions := attrs["not_actions"]
		_, hasNotResources := attrs["not_resources"]

		sid, _ := attrStrings(attrs, "sid")
		id := ""
		if len(sid) > 0 {
			id = sid[0]
		}
		needsReview := !actionsOK || !resourcesOK || hasNotActions || hasNotResources
		out = append(out, statementFindings(path, ref, id, st.DefRange(), effect, actions, resources, needsReview)...)
	}
	return out
}

func statementFindings(path, ref, sid string, rng hcl.Range, effect string, actions, resources []string, needsReview bool) []types.Finding {
	var out []types.Finding
	if strings.EqualFold(strings.TrimSpace(effect), "Allow") {
		if hasWildcard(actions) {
			out = append(out, policyFinding(path, ref, sid, rng, ruleIAMWildcard, types.SevHigh,
				fmt.Sprintf(`Effect "Allow" with Action wildcard (%s)`, strings.Join(actions, ", ")),
				"Grant only the specific actions the principal needs"))
		}
		if hasStar(resources) {
			out = append(out, policyFinding(path, ref, sid, rng, ruleIAMWildcard, types.SevHigh,
				`Effect "Allow" with Resource "*"`,
				"Scope the statement to explicit resource ARNs"))
		}
	}
	if needsReview {
		out = append(out, policyFinding(path, ref, sid, rng, ruleIAMManualReview, types.SevMedium,
			"Statement uses dynamic values, not_actions or not_resources",
			"Review the statement for permissiveness"))
	}
	return out
}

func policyFinding(path, ref, sid string, rng hcl.Range, rule string, sev types.Severity, msg, suggestion string) types.Finding {
	return types.Finding{
		Scanner:     "security",
		Rule:        rule,
		Severity:    sev,
		File:        path,
		Line:        rng.Start.Line,
		Column:      rng.Start.Column,
		Message:     msg,
		Suggestion:  suggestion,
		BlockRef:    ref,
		StatementID: sid,
	}
}

func hasWildcard(vals []string) bool {
	for _, v := range vals {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "*" || v == "*:*" || strings.HasSuffix(v, ":*") {
			return true
		}
	}
	return false
}

func hasStar(vals []string) bool {
	for _, v := range vals {
		if strings.TrimSpace(v) == "*" {
			return true
		}
	}
	return false
}

// attrStrings reads a literal string or a tuple of literal strings. ok is
// false when the attribute is missing or not fully static.
func attrStrings(attrs hclsyntax.Attributes, name string) ([]string, bool) {
	attr, ok := attrs[name]
	if !ok {
		return nil, false
	}
	if s, ok := staticString(attr.Expr); ok {
		return []string{s}, true
	}
	tuple, ok := attr.Expr.(*hclsyntax.TupleConsExpr)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(tuple.Exprs))
	for _, e := range tuple.Exprs {
		s, ok := staticString(e)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// staticString accepts a quoted string or heredoc with no interpolations.
func staticString(expr hcl.Expression) (string, bool) {
	switch e := expr.(type) {
	case *hclsyntax.LiteralValueExpr:
		if e.Val.Type() == cty.String && e.Val.IsKnown() && !e.Val.IsNull() {
			return e.Val.AsString(), true
		}
	case *hclsyntax.TemplateWrapExpr:
		return staticString(e.Wrapped)
	case *hclsyntax.TemplateExpr:
		var b strings.Builder
		for _, part := range e.Parts {
			s, ok := staticString(part)
			if !ok {
				return "", false
			}
			b.WriteString(s)
		}
		return b.String(), true
	}
	return "", false
}
