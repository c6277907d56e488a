/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/entitymapper/storagemodels"
)

type updateExpression struct {
	update    string
	condition string
	names     map[string]string
	values    map[string]types.AttributeValue
}

// keyCondition joins fn(#kN) for every key field, e.g.
// "attribute_exists(#k0) AND attribute_exists(#k1)".
func keyCondition(fn string, keyNames []string) (string, map[string]string) {
	clauses := make([]string, len(keyNames))
	names := make(map[string]string, len(keyNames))
	for i, name := range keyNames {
		placeholder := fmt.Sprintf("#k%d", i)
		clauses[i] = fmt.Sprintf("%s(%s)", fn, placeholder)
		names[placeholder] = name
	}
	return strings.Join(clauses, " AND "), names
}

// buildUpdateExpression transforms changes into:
//   - an update expression, e.g. "SET #f0 = :v0, #f1 = :v1 REMOVE #f2"
//   - a condition requiring the key fields to exist
//   - the matching expression attribute names and values
//
// Fields are numbered in sorted order. The update is empty when changes only
// touch key fields.
func buildUpdateExpression(keyNames []string, changes storagemodels.Record) (updateExpression, error) {
	isKey := make(map[string]bool, len(keyNames))
	for _, name := range keyNames {
		isKey[name] = true
	}

	fields := make([]string, 0, len(changes))
	for field := range changes {
		if !isKey[field] {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	condition, names := keyCondition("attribute_exists", keyNames)
	expr := updateExpression{
		condition: condition,
		names:     names,
	}
	if len(fields) == 0 {
		return expr, nil
	}

	var sets, removes []string
	for i, field := range fields {
		name := fmt.Sprintf("#f%d", i)
		expr.names[name] = field

		val := changes[field]
		if val == nil {
			removes = append(removes, name)
			continue
		}

		av, err := attributevalue.Marshal(val)
		if err != nil {
			return updateExpression{}, fmt.Errorf("marshalling field %q: %w", field, err)
		}
		placeholder := fmt.Sprintf(":v%d", i)
		if expr.values == nil {
			expr.values = make(map[string]types.AttributeValue)
		}
		expr.values[placeholder] = av
		sets = append(sets, fmt.Sprintf("%s = %s", name, placeholder))
	}

	var parts []string
	if len(sets) > 0 {
		parts = append(parts, "SET "+strings.Join(sets, ", "))
	}
	if len(removes) > 0 {
		parts = append(parts, "REMOVE "+strings.Join(removes, ", "))
	}
	expr.update = strings.Join(parts, " ")
	return expr, nil
}
