package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bnema/stock-admin-cli/internal/adapters/store"
	"github.com/bnema/stock-admin-cli/internal/domain"
)

const defaultPerPage = 10

type Pagination struct {
	Page    int
	PerPage int
}

func (p Pagination) withDefaults() Pagination {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PerPage <= 0 {
		p.PerPage = defaultPerPage
	}
	return p
}

type Sort struct {
	Field      string
	Descending bool
}

// Directive renders the sort in the store dialect: field name, with a
// leading "-" when descending.
func (s Sort) Directive() string {
	if s.Field == "" {
		return "id"
	}
	if s.Descending {
		return "-" + s.Field
	}
	return s.Field
}

// Filter maps field names to scalar values. Insertion order is irrelevant;
// clauses are emitted in sorted field order so output is deterministic.
type Filter map[string]any

type ListPage struct {
	Items []domain.Record
	Total int
}

// DataService translates generic list/get/create/update/delete intents into
// the store's query dialect and sanitizes payloads before submission.
type DataService struct {
	store *store.Client
}

func NewDataService(client *store.Client) *DataService {
	return &DataService{store: client}
}

func (s *DataService) List(ctx context.Context, resource string, page Pagination, sortBy Sort, filter Filter) (ListPage, error) {
	desc, err := domain.ResourceFor(resource)
	if err != nil {
		return ListPage{}, err
	}
	page = page.withDefaults()

	result, err := s.store.List(ctx, resource, store.ListOptions{
		Page:    page.Page,
		PerPage: page.PerPage,
		Sort:    sortBy.Directive(),
		Filter:  BuildFilter(desc, filter),
		Expand:  desc.Expand,
	})
	if err != nil {
		return ListPage{}, err
	}
	return ListPage{Items: result.Items, Total: result.TotalItems}, nil
}

func (s *DataService) GetOne(ctx context.Context, resource, id string) (domain.Record, error) {
	desc, err := domain.ResourceFor(resource)
	if err != nil {
		return nil, err
	}

	record, err := s.store.Get(ctx, resource, id, store.ListOptions{Expand: desc.Expand})
	if err != nil {
		return nil, err
	}

	// The only resource-specific response transform: resolve the stored photo
	// filename into a url/title pair.
	if resource == domain.ResourceProducts && desc.FileField != "" {
		if filename := record.String(desc.FileField); filename != "" {
			record = record.Clone()
			record[desc.FileField] = domain.ResolvedFile{
				URL:   s.store.FileURL(resource, record.ID(), filename),
				Title: filename,
			}
		}
	}
	return record, nil
}

func (s *DataService) GetMany(ctx context.Context, resource string, ids []string) ([]domain.Record, error) {
	desc, err := domain.ResourceFor(resource)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	clauses := make([]string, 0, len(ids))
	for _, id := range ids {
		clauses = append(clauses, fmt.Sprintf("id=%s", quoteFilterValue(id)))
	}

	return s.store.FullList(ctx, resource, store.ListOptions{
		Filter: strings.Join(clauses, " || "),
		Expand: desc.Expand,
	})
}

func (s *DataService) GetManyReference(ctx context.Context, resource, target, targetID string, page Pagination, sortBy Sort) (ListPage, error) {
	desc, err := domain.ResourceFor(resource)
	if err != nil {
		return ListPage{}, err
	}
	page = page.withDefaults()

	result, err := s.store.List(ctx, resource, store.ListOptions{
		Page:    page.Page,
		PerPage: page.PerPage,
		Sort:    sortBy.Directive(),
		Filter:  fmt.Sprintf("%s=%s", target, quoteFilterValue(targetID)),
		Expand:  desc.Expand,
	})
	if err != nil {
		return ListPage{}, err
	}
	return ListPage{Items: result.Items, Total: result.TotalItems}, nil
}

func (s *DataService) Create(ctx context.Context, resource string, data domain.Record) (domain.Record, error) {
	desc, err := domain.ResourceFor(resource)
	if err != nil {
		return nil, err
	}

	record, err := s.store.Create(ctx, resource, Sanitize(desc, data))
	if err != nil {
		return nil, wrapValidation(err)
	}
	return record, nil
}

func (s *DataService) Update(ctx context.Context, resource, id string, data domain.Record) (domain.Record, error) {
	desc, err := domain.ResourceFor(resource)
	if err != nil {
		return nil, err
	}

	record, err := s.store.Update(ctx, resource, id, Sanitize(desc, data))
	if err != nil {
		return nil, wrapValidation(err)
	}
	return record, nil
}

// UpdateMany fans the same sanitized payload out to every id concurrently.
// Every id is attempted; successes stand even when siblings fail.
func (s *DataService) UpdateMany(ctx context.Context, resource string, ids []string, data domain.Record) (BatchResult, error) {
	desc, err := domain.ResourceFor(resource)
	if err != nil {
		return BatchResult{}, err
	}
	clean := Sanitize(desc, data)

	return fanOut(ids, func(id string) error {
		_, err := s.store.Update(ctx, resource, id, clean)
		return wrapValidation(err)
	}), nil
}

// Delete issues the remote delete and hands back the caller-supplied prior
// snapshot; the store response carries no body worth returning.
func (s *DataService) Delete(ctx context.Context, resource, id string, previous domain.Record) (domain.Record, error) {
	if _, err := domain.ResourceFor(resource); err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, resource, id); err != nil {
		return nil, err
	}
	return previous, nil
}

func (s *DataService) DeleteMany(ctx context.Context, resource string, ids []string) (BatchResult, error) {
	if _, err := domain.ResourceFor(resource); err != nil {
		return BatchResult{}, err
	}

	return fanOut(ids, func(id string) error {
		return s.store.Delete(ctx, resource, id)
	}), nil
}

// BuildFilter conjoins one clause per filter entry. Relation fields always
// use exact match, textual values substring match, everything else exact
// match. An empty filter yields no expression at all.
func BuildFilter(desc domain.ResourceDescriptor, filter Filter) string {
	if len(filter) == 0 {
		return ""
	}

	fields := make([]string, 0, len(filter))
	for field := range filter {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	clauses := make([]string, 0, len(fields))
	for _, field := range fields {
		value := filter[field]
		operator := "="
		if !desc.IsRelation(field) {
			if _, textual := value.(string); textual {
				operator = "~"
			}
		}
		clauses = append(clauses, fmt.Sprintf("%s%s%s", field, operator, quoteFilterValue(value)))
	}
	return strings.Join(clauses, " && ")
}

// Sanitize strips server-managed and derived fields and resolves the file
// field before a write. It never mutates its input and is idempotent.
func Sanitize(desc domain.ResourceDescriptor, data domain.Record) domain.Record {
	clean := data.Clone()
	if clean == nil {
		return domain.Record{}
	}

	for _, field := range desc.StripFields() {
		delete(clean, field)
	}

	if desc.FileField != "" {
		switch clean[desc.FileField].(type) {
		case nil:
		case domain.FileUpload:
			// Fresh upload, forwarded as-is.
		default:
			// Already-resolved object or bare filename: drop the field so the
			// stored file is left untouched.
			delete(clean, desc.FileField)
		}
	}
	return clean
}

func quoteFilterValue(value any) string {
	s := fmt.Sprint(value)
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	if store.IsValidationError(err) {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return err
}

// BatchFailure records one failed id of a batch operation.
type BatchFailure struct {
	ID      string
	Message string
}

// BatchResult is the collect-and-continue outcome of a batch mutation.
type BatchResult struct {
	Succeeded []string
	Failures  []BatchFailure
}

func (r BatchResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	messages := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		messages = append(messages, fmt.Sprintf("%s: %s", f.ID, f.Message))
	}
	return errors.New(strings.Join(messages, "; "))
}

// fanOut runs op for every id concurrently and collects the outcome. Result
// order follows the input id order regardless of completion order.
func fanOut(ids []string, op func(id string) error) BatchResult {
	errs := make([]error, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = op(id)
		}(i, id)
	}
	wg.Wait()

	var result BatchResult
	for i, id := range ids {
		if errs[i] != nil {
			result.Failures = append(result.Failures, BatchFailure{ID: id, Message: errs[i].Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result
}
