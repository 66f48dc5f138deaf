package domain

import (
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/errors"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/pagination"
)

// CompareOp is a comparison operator accepted on numeric product fields.
type CompareOp string

const (
	OpEq  CompareOp = "eq"
	OpGt  CompareOp = "gt"
	OpGte CompareOp = "gte"
	OpLt  CompareOp = "lt"
	OpLte CompareOp = "lte"
)

// NumericFilter is one comparison against a numeric product field.
type NumericFilter struct {
	Field string
	Op    CompareOp
	Value int64
}

// SortField orders results by one field.
type SortField struct {
	Field string
	Desc  bool
}

// ProductQuery is the validated form of a catalog listing request. Field
// names inside it are always members of the allow-lists below.
type ProductQuery struct {
	Numeric []NumericFilter
	// Equals holds the text equality filters keyed by category, brand or slug.
	Equals map[string]string
	// Colors matches products having any of the listed color ids.
	Colors []string
	Sort   []SortField
	Fields []string
	Page   pagination.Params
}

var (
	numericFields  = []string{"price", "stock", "sold", "aggregate_rating"}
	equalityFields = []string{"category", "brand", "slug"}
	sortFields     = []string{"created_at", "updated_at", "price", "title", "sold", "stock", "aggregate_rating"}
	productFields  = []string{
		"id", "title", "slug", "description", "price", "stock", "sold",
		"category_id", "brand_id", "colors", "tags", "images", "ratings",
		"aggregate_rating", "version", "created_at", "updated_at",
	}
	compareOps = []CompareOp{OpGt, OpGte, OpLt, OpLte}
)

// DefaultSort is newest first.
var DefaultSort = []SortField{{Field: "created_at", Desc: true}}

// DefaultFields is every product field except version.
func DefaultFields() []string {
	return slices.DeleteFunc(slices.Clone(productFields), func(f string) bool { return f == "version" })
}

// ParseProductQuery builds a ProductQuery from URL parameters. Any parameter,
// operator or field outside the allow-lists is rejected.
func ParseProductQuery(values url.Values) (ProductQuery, error) {
	q := ProductQuery{
		Equals: map[string]string{},
		Sort:   DefaultSort,
		Fields: DefaultFields(),
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	page, limit := 0, 0
	for _, key := range keys {
		value := values.Get(key)
		switch key {
		case "page":
			n, err := positiveInt(key, value)
			if err != nil {
				return ProductQuery{}, err
			}
			page = n
		case "limit":
			n, err := positiveInt(key, value)
			if err != nil {
				return ProductQuery{}, err
			}
			limit = n
		case "sort":
			s, err := parseSort(value)
			if err != nil {
				return ProductQuery{}, err
			}
			q.Sort = s
		case "fields":
			f, err := parseFields(value)
			if err != nil {
				return ProductQuery{}, err
			}
			q.Fields = f
		case "color":
			q.Colors = splitList(value)
			if len(q.Colors) == 0 {
				return ProductQuery{}, apperrors.InvalidInput("color must list at least one color id")
			}
		default:
			if err := q.parseFilter(key, values[key]); err != nil {
				return ProductQuery{}, err
			}
		}
	}

	q.Page = pagination.New(page, limit)
	q.Page.Explicit = values.Has("page")
	return q, nil
}

func (q *ProductQuery) parseFilter(key string, vals []string) error {
	field, op := key, OpEq
	if i := strings.IndexByte(key, '['); i >= 0 {
		if !strings.HasSuffix(key, "]") {
			return apperrors.InvalidInput(fmt.Sprintf("malformed query parameter %q", key))
		}
		field, op = key[:i], CompareOp(key[i+1:len(key)-1])
		if !slices.Contains(compareOps, op) {
			return apperrors.InvalidInput(fmt.Sprintf("unsupported operator %q on %s", op, field))
		}
	}

	switch {
	case slices.Contains(numericFields, field):
		for _, v := range vals {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return apperrors.InvalidInput(fmt.Sprintf("%s must be an integer", key))
			}
			q.Numeric = append(q.Numeric, NumericFilter{Field: field, Op: op, Value: n})
		}
		return nil
	case slices.Contains(equalityFields, field):
		if op != OpEq {
			return apperrors.InvalidInput(fmt.Sprintf("%s only supports equality", field))
		}
		q.Equals[field] = vals[0]
		return nil
	default:
		return apperrors.InvalidInput(fmt.Sprintf("unknown query parameter %q", key))
	}
}

func parseSort(value string) ([]SortField, error) {
	parts := splitList(value)
	if len(parts) == 0 {
		return DefaultSort, nil
	}
	out := make([]SortField, 0, len(parts))
	for _, p := range parts {
		desc := strings.HasPrefix(p, "-")
		name := strings.TrimPrefix(p, "-")
		if !slices.Contains(sortFields, name) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("cannot sort by %q", name))
		}
		out = append(out, SortField{Field: name, Desc: desc})
	}
	return out, nil
}

func parseFields(value string) ([]string, error) {
	parts := splitList(value)
	if len(parts) == 0 {
		return DefaultFields(), nil
	}
	out := []string{"id"}
	for _, p := range parts {
		if !slices.Contains(productFields, p) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("unknown field %q", p))
		}
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func positiveInt(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, apperrors.InvalidInput(name + " must be a positive integer")
	}
	return n, nil
}

func splitList(value string) []string {
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// HasField reports whether f is part of the selected fields.
func (q ProductQuery) HasField(f string) bool {
	return slices.Contains(q.Fields, f)
}

// Project renders p with only the selected fields.
func Project(p *Product, fields []string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		switch f {
		case "id":
			out[f] = p.ID
		case "title":
			out[f] = p.Title
		case "slug":
			out[f] = p.Slug
		case "description":
			out[f] = p.Description
		case "price":
			out[f] = p.Price
		case "stock":
			out[f] = p.Stock
		case "sold":
			out[f] = p.Sold
		case "category_id":
			out[f] = p.CategoryID
		case "brand_id":
			out[f] = p.BrandID
		case "colors":
			out[f] = nonNil(p.Colors)
		case "tags":
			out[f] = nonNil(p.Tags)
		case "images":
			out[f] = nonNil(p.Images)
		case "ratings":
			out[f] = nonNil(p.Ratings)
		case "aggregate_rating":
			out[f] = p.AggregateRating
		case "version":
			out[f] = p.Version
		case "created_at":
			out[f] = p.CreatedAt
		case "updated_at":
			out[f] = p.UpdatedAt
		}
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
