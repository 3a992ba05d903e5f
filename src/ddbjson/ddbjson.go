/*
Copyright (c) YugabyteDB, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package ddbjson encodes and decodes DynamoDB JSON, the typed JSON form in
// which every attribute value is a single-key object naming its type:
//
//	{"id": {"N": "1"}, "name": {"S": "Alice"}, "tags": {"SS": ["a", "b"]}}
//
// Ref: https://docs.aws.amazon.com/amazondynamodb/latest/developerguide/HowItWorks.NamingRulesDataTypes.html
package ddbjson

import (
	"bytes"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/goccy/go-json"
)

// Item is one DynamoDB item keyed by attribute name.
type Item = map[string]types.AttributeValue

const (
	typeB    = "B"
	typeBOOL = "BOOL"
	typeBS   = "BS"
	typeL    = "L"
	typeM    = "M"
	typeN    = "N"
	typeNS   = "NS"
	typeNULL = "NULL"
	typeS    = "S"
	typeSS   = "SS"
)

func MarshalItem(item Item) ([]byte, error) {
	doc, err := toDocumentMap(item)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func UnmarshalItem(data []byte) (Item, error) {
	if isNull(data) {
		return nil, fmt.Errorf("unmarshal dynamodb json item: item is null")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal dynamodb json item: %w", err)
	}
	return fromDocumentMap(raw)
}

func MarshalAttributeValue(av types.AttributeValue) ([]byte, error) {
	doc, err := toDocument(av)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func UnmarshalAttributeValue(data []byte) (types.AttributeValue, error) {
	return fromDocument(data)
}

func toDocumentMap(item Item) (map[string]any, error) {
	doc := make(map[string]any, len(item))
	for name, av := range item {
		v, err := toDocument(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		doc[name] = v
	}
	return doc, nil
}

func toDocument(av types.AttributeValue) (map[string]any, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return map[string]any{typeS: v.Value}, nil
	case *types.AttributeValueMemberN:
		return map[string]any{typeN: v.Value}, nil
	case *types.AttributeValueMemberB:
		return map[string]any{typeB: v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return map[string]any{typeBOOL: v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return map[string]any{typeNULL: v.Value}, nil
	case *types.AttributeValueMemberSS:
		return map[string]any{typeSS: nonNil(v.Value)}, nil
	case *types.AttributeValueMemberNS:
		return map[string]any{typeNS: nonNil(v.Value)}, nil
	case *types.AttributeValueMemberBS:
		return map[string]any{typeBS: nonNil(v.Value)}, nil
	case *types.AttributeValueMemberL:
		list := make([]any, 0, len(v.Value))
		for i, elem := range v.Value {
			doc, err := toDocument(elem)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list = append(list, doc)
		}
		return map[string]any{typeL: list}, nil
	case *types.AttributeValueMemberM:
		m, err := toDocumentMap(v.Value)
		if err != nil {
			return nil, err
		}
		return map[string]any{typeM: m}, nil
	default:
		return nil, fmt.Errorf("unsupported attribute value type %T", av)
	}
}

func fromDocumentMap(raw map[string]json.RawMessage) (Item, error) {
	item := make(Item, len(raw))
	for name, data := range raw {
		av, err := fromDocument(data)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		item[name] = av
	}
	return item, nil
}

func fromDocument(data []byte) (types.AttributeValue, error) {
	if isNull(data) {
		return nil, fmt.Errorf("attribute value is null")
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal attribute value: %w", err)
	}
	if len(doc) != 1 {
		return nil, fmt.Errorf("attribute value must have exactly one type key, got %d", len(doc))
	}
	for typ, value := range doc {
		if isNull(value) {
			return nil, fmt.Errorf("%s value is null", typ)
		}
		switch typ {
		case typeS:
			var s string
			err := json.Unmarshal(value, &s)
			return &types.AttributeValueMemberS{Value: s}, wrapTypeErr(typ, err)
		case typeN:
			var n string
			err := json.Unmarshal(value, &n)
			return &types.AttributeValueMemberN{Value: n}, wrapTypeErr(typ, err)
		case typeB:
			var b []byte
			err := json.Unmarshal(value, &b)
			return &types.AttributeValueMemberB{Value: b}, wrapTypeErr(typ, err)
		case typeBOOL:
			var b bool
			err := json.Unmarshal(value, &b)
			return &types.AttributeValueMemberBOOL{Value: b}, wrapTypeErr(typ, err)
		case typeNULL:
			var b bool
			err := json.Unmarshal(value, &b)
			return &types.AttributeValueMemberNULL{Value: b}, wrapTypeErr(typ, err)
		case typeSS:
			ss, err := decodeStringSet(value)
			return &types.AttributeValueMemberSS{Value: ss}, wrapTypeErr(typ, err)
		case typeNS:
			ns, err := decodeStringSet(value)
			return &types.AttributeValueMemberNS{Value: ns}, wrapTypeErr(typ, err)
		case typeBS:
			var bs [][]byte
			err := json.Unmarshal(value, &bs)
			return &types.AttributeValueMemberBS{Value: bs}, wrapTypeErr(typ, err)
		case typeL:
			var elems []json.RawMessage
			if err := json.Unmarshal(value, &elems); err != nil {
				return nil, wrapTypeErr(typ, err)
			}
			list := make([]types.AttributeValue, 0, len(elems))
			for i, elem := range elems {
				av, err := fromDocument(elem)
				if err != nil {
					return nil, fmt.Errorf("list index %d: %w", i, err)
				}
				list = append(list, av)
			}
			return &types.AttributeValueMemberL{Value: list}, nil
		case typeM:
			var raw map[string]json.RawMessage
			if err := json.Unmarshal(value, &raw); err != nil {
				return nil, wrapTypeErr(typ, err)
			}
			m, err := fromDocumentMap(raw)
			if err != nil {
				return nil, err
			}
			return &types.AttributeValueMemberM{Value: m}, nil
		default:
			return nil, fmt.Errorf("unknown attribute value type %q", typ)
		}
	}
	panic("unreachable")
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// decodeStringSet rejects null members, which would otherwise decode to "".
func decodeStringSet(data []byte) ([]string, error) {
	var ptrs []*string
	if err := json.Unmarshal(data, &ptrs); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ptrs))
	for i, p := range ptrs {
		if p == nil {
			return nil, fmt.Errorf("set member %d is null", i)
		}
		out = append(out, *p)
	}
	return out, nil
}

func wrapTypeErr(typ string, err error) error {
	if err != nil {
		return fmt.Errorf("decode %s value: %w", typ, err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
