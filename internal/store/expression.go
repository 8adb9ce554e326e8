package store

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/smartoutreach/hub/internal/model"
)

// updateBuilder accumulates SET clauses for an UpdateItem call. Attribute
// names are always aliased so reserved words like "status" stay safe.
type updateBuilder struct {
	clauses []string
	names   map[string]string
	values  map[string]types.AttributeValue
	n       int
}

func newUpdateBuilder() *updateBuilder {
	return &updateBuilder{
		names:  make(map[string]string),
		values: make(map[string]types.AttributeValue),
	}
}

func (b *updateBuilder) set(attr string, value types.AttributeValue) {
	nameKey := fmt.Sprintf("#a%d", b.n)
	valueKey := fmt.Sprintf(":v%d", b.n)
	b.n++
	b.clauses = append(b.clauses, fmt.Sprintf("%s = %s", nameKey, valueKey))
	b.names[nameKey] = attr
	b.values[valueKey] = value
}

func (b *updateBuilder) stampUpdatedAt() {
	b.set("updated_at", &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)})
}

func (b *updateBuilder) expression() string {
	return "SET " + strings.Join(b.clauses, ", ")
}

// buildMetricsAdd renders a MetricsDelta as an ADD update expression. The
// attribute order is sorted so the expression is deterministic.
func buildMetricsAdd(delta model.MetricsDelta) (expr string, values map[string]types.AttributeValue) {
	attrs := delta.Attributes()
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	values = make(map[string]types.AttributeValue, len(keys))
	for i, k := range keys {
		valueKey := fmt.Sprintf(":m%d", i)
		clauses = append(clauses, fmt.Sprintf("%s %s", k, valueKey))
		values[valueKey] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", attrs[k])}
	}
	return "ADD " + strings.Join(clauses, ", "), values
}
