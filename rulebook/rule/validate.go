package rule

// ValidateTree checks every condition of tree against schema. Unparsed *Raw
// leaves are rejected.
func ValidateTree(tree Node, schema Schema) error {
	var err error
	Walk(tree, func(n Node) bool {
		if err != nil {
			return false
		}
		switch n := n.(type) {
		case *Condition:
			err = ValidateCondition(n, schema)
		case *Raw:
			err = syntaxError(-1, "condition %q has not been parsed", n.Text)
		}
		return true
	})
	return err
}

// ValidateCondition checks one condition against schema.
func ValidateCondition(c *Condition, schema Schema) error {
	typ, ok := schema.Lookup(c.DB, c.Field)
	if !ok {
		return unknownFieldError(c.Path())
	}
	if !allowed(typ, c.Op, c.Value) {
		return validationError(c, typ)
	}
	return nil
}

func allowed(typ FieldType, op CmpOp, v Value) bool {
	switch typ {
	case FieldString:
		switch v.(type) {
		case StringValue:
			return op == OpEq || op == OpHas
		case StringListValue:
			return op == OpIn
		}
	case FieldInt, FieldFloat:
		switch v.(type) {
		case NumberValue:
			return op.Ordering()
		case NumberListValue, RangeValue:
			return op == OpIn
		}
	case FieldDateTime:
		switch v.(type) {
		case DateTimeValue, TimeDeltaValue:
			return op.Ordering()
		}
	case FieldBool:
		if _, ok := v.(BoolValue); ok {
			return op == OpEq
		}
	}
	return false
}
