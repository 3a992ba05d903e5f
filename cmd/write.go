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
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/amazon-ion/ion-go/ion"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yugabyte/yb-ddbio/src/datafile"
	"github.com/yugabyte/yb-ddbio/src/ddbjson"
	"github.com/yugabyte/yb-ddbio/src/utils"
	"github.com/yugabyte/yb-ddbio/src/utils/s3"
)

var (
	writeFormatStr string
	writeInputPath string
	writeURI       string
)

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Convert plain JSON lines into a gzipped data file ready for import start",
	Long: `Write reads one JSON object per line from --input (or stdin) and writes them as a gzipped
DynamoDB JSON or Ion data file to --uri. When --uri ends with "/" a file name is generated.

Numbers keep their exact decimal text. JSON null becomes NULL, arrays become lists and objects maps.`,
	PreRun: func(cmd *cobra.Command, args []string) {
		if err := s3.ValidateObjectURL(writeURI); err != nil {
			utils.ErrExit("invalid --uri: %s", err)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		format, err := datafile.ParseFormat(writeFormatStr)
		if err != nil {
			utils.ErrExit("invalid --format: %s", err)
		}
		uri := writeURI
		if strings.HasSuffix(uri, "/") {
			uri += uuid.New().String() + format.FileExtension()
		}

		in, inputName := io.Reader(os.Stdin), "stdin"
		if writeInputPath != "" && writeInputPath != "-" {
			f, err := os.Open(writeInputPath)
			if err != nil {
				utils.ErrExit("open %s: %s", writeInputPath, err)
			}
			defer f.Close()
			in, inputName = f, writeInputPath
		}
		docs, err := readJSONLines(in)
		if err != nil {
			utils.ErrExit("read %s: %s", inputName, err)
		}

		ctx := context.Background()
		ds := getDatastore(ctx)
		defer ds.Close()
		err = writeDocuments(ctx, ds, uri, format, docs)
		if err != nil {
			utils.ErrExit("write %s: %s", uri, err)
		}
		utils.PrintAndLog("Wrote %d items to %s", len(docs), uri)
	},
}

// readJSONLines decodes a stream of JSON objects. Numbers are kept as
// json.Number.
func readJSONLines(r io.Reader) ([]map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var docs []map[string]any
	for {
		var doc map[string]any
		err := dec.Decode(&doc)
		if err == io.EOF {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(docs)+1, err)
		}
		if doc == nil {
			return nil, fmt.Errorf("record %d: expected a JSON object", len(docs)+1)
		}
		docs = append(docs, doc)
	}
}

func writeDocuments(ctx context.Context, store datafile.Store, uri string, format datafile.Format, docs []map[string]any) error {
	switch format {
	case datafile.DYNAMODB_JSON:
		items := make([]ddbjson.Item, 0, len(docs))
		for i, doc := range docs {
			item, err := documentToItem(doc)
			if err != nil {
				return fmt.Errorf("record %d: %w", i+1, err)
			}
			items = append(items, item)
		}
		return datafile.WriteItems(ctx, store, uri, items)
	case datafile.ION:
		records := make([]map[string]any, 0, len(docs))
		for i, doc := range docs {
			rec, err := documentToIon(doc)
			if err != nil {
				return fmt.Errorf("record %d: %w", i+1, err)
			}
			records = append(records, rec.(map[string]any))
		}
		return datafile.WriteIon(ctx, store, uri, records)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func documentToItem(doc map[string]any) (ddbjson.Item, error) {
	item := make(ddbjson.Item, len(doc))
	for name, v := range doc {
		av, err := toAttributeValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		item[name] = av
	}
	return item, nil
}

func toAttributeValue(v any) (types.AttributeValue, error) {
	switch x := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: x}, nil
	case string:
		return &types.AttributeValueMemberS{Value: x}, nil
	case json.Number:
		return &types.AttributeValueMemberN{Value: x.String()}, nil
	case []any:
		l := make([]types.AttributeValue, 0, len(x))
		for i, e := range x {
			av, err := toAttributeValue(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			l = append(l, av)
		}
		return &types.AttributeValueMemberL{Value: l}, nil
	case map[string]any:
		m, err := documentToItem(x)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	default:
		return nil, fmt.Errorf("unexpected JSON value of type %T", v)
	}
}

// Ion decimals write the exponent as "d".
var exponentReplacer = strings.NewReplacer("e", "d", "E", "d")

// documentToIon turns json.Number into Ion decimals, the number type the
// service uses in Ion data files.
func documentToIon(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		d, err := ion.ParseDecimal(exponentReplacer.Replace(x.String()))
		if err != nil {
			return nil, fmt.Errorf("number %s: %w", x, err)
		}
		return d, nil
	case []any:
		l := make([]any, 0, len(x))
		for i, e := range x {
			iv, err := documentToIon(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			l = append(l, iv)
		}
		return l, nil
	case map[string]any:
		m := make(map[string]any, len(x))
		for name, e := range x {
			iv, err := documentToIon(e)
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %w", name, err)
			}
			m[name] = iv
		}
		return m, nil
	default:
		return v, nil
	}
}

func init() {
	rootCmd.AddCommand(writeCmd)
	writeCmd.Flags().StringVar(&writeFormatStr, "format", string(datafile.DYNAMODB_JSON), "output format: DYNAMODB_JSON or ION")
	writeCmd.Flags().StringVar(&writeInputPath, "input", "-", "JSON lines file to convert, - for stdin")
	writeCmd.Flags().StringVar(&writeURI, "uri", "", "destination object, s3://bucket/key (or a prefix ending with /)")
	markFlagsRequired(writeCmd, "uri")
}
