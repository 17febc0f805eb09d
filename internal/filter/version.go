package filter

// Version selects a grammar dialect. The filter language has evolved;
// older dialects remain separately supported so that clients pinned to an
// earlier API version keep parsing exactly as they used to.
type Version string

const (
	// V0_10_1 is the legacy dialect: no constant-first comparisons and only
	// the bare LENGTH equality form ("elements LENGTH 3").
	V0_10_1 Version = "0.10.1"

	// V1_2_0 is the full dialect with constant-first comparisons and
	// relational LENGTH ("elements LENGTH >= 2").
	V1_2_0 Version = "1.2.0"

	// Latest is the dialect used when the caller does not pin a version.
	Latest = V1_2_0
)

// dialect captures the feature gates that distinguish grammar versions.
// The token-level grammar is shared; constructs newer than the requested
// version are rejected after the parse with a SyntaxError, which keeps the
// compiled grammar a single immutable object.
type dialect struct {
	version        Version
	constantFirst  bool
	lengthOperator bool
}

var dialects = map[Version]dialect{
	V0_10_1: {version: V0_10_1, constantFirst: false, lengthOperator: false},
	V1_2_0:  {version: V1_2_0, constantFirst: true, lengthOperator: true},
}

// Versions returns the supported grammar versions in ascending order.
func Versions() []Version {
	return []Version{V0_10_1, V1_2_0}
}

// check walks the tree and rejects constructs the dialect does not derive.
func (d dialect) check(f *Filter) error {
	if f == nil || f.Expr == nil {
		return nil
	}
	return d.checkExpression(f.Expr)
}

func (d dialect) checkExpression(e *Expression) error {
	if err := d.checkTerm(e.Left); err != nil {
		return err
	}
	for _, t := range e.Right {
		if err := d.checkTerm(t); err != nil {
			return err
		}
	}
	return nil
}

func (d dialect) checkTerm(t *Term) error {
	if err := d.checkPhrase(t.Left); err != nil {
		return err
	}
	for _, p := range t.Right {
		if err := d.checkPhrase(p); err != nil {
			return err
		}
	}
	return nil
}

func (d dialect) checkPhrase(p *Phrase) error {
	if p.Group != nil {
		return d.checkExpression(p.Group)
	}
	if p.Comparison == nil {
		return nil
	}
	if cf := p.Comparison.ConstantFirst; cf != nil && !d.constantFirst {
		return &SyntaxError{
			Message: "constant-first comparisons are not part of grammar v" + string(d.version),
			Line:    cf.Pos.Line,
			Column:  cf.Pos.Column,
		}
	}
	if pf := p.Comparison.PropertyFirst; pf != nil && pf.RHS != nil && pf.RHS.Length != nil {
		if l := pf.RHS.Length; l.Op != "" && !d.lengthOperator {
			return &SyntaxError{
				Message: "LENGTH with a comparison operator is not part of grammar v" + string(d.version),
				Line:    l.Pos.Line,
				Column:  l.Pos.Column,
			}
		}
	}
	return nil
}
