// Package memstore 是 rawstore.Store 的記憶體實作，供測試與本機試跑使用。
// 文件一律經過 BSON 編碼再解碼，讓欄位型別與從 MongoDB 讀回時一致
// （time.Time → primitive.DateTime、money.Amount → Decimal128）。
package memstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"opsboard/internal/core"
	"opsboard/internal/rawstore"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Op string

const (
	OpFind       Op = "find"
	OpDistinct   Op = "distinct"
	OpBulkUpsert Op = "bulkUpsert"
	OpDeleteMany Op = "deleteMany"
	OpInsertMany Op = "insertMany"
)

type failure struct {
	err       error
	remaining int // <= 0 表示永遠失敗
}

type failureKey struct {
	op         Op
	collection core.MongoCollection
}

type Store struct {
	mu          sync.RWMutex
	collections map[core.MongoCollection][]bson.M
	failures    map[failureKey]*failure
	calls       map[failureKey]int
	// 每個集合的唯一索引欄位組合；_id 永遠唯一
	unique map[core.MongoCollection][][]string
}

var _ rawstore.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		collections: make(map[core.MongoCollection][]bson.M),
		failures:    make(map[failureKey]*failure),
		calls:       make(map[failureKey]int),
		unique:      make(map[core.MongoCollection][][]string),
	}
}

// UniqueIndex 與 MongoDB 的 unique index 相同：寫入重複組合時回傳 rawstore.ErrDuplicateKey
func (s *Store) UniqueIndex(collection core.MongoCollection, fields ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unique[collection] = append(s.unique[collection], append([]string(nil), fields...))
}

// conflict 回傳 doc 在 existing 內違反的索引名稱；須在持有鎖時呼叫
func (s *Store) conflict(collection core.MongoCollection, existing []bson.M, doc bson.M) (string, bool) {
	indexes := append([][]string{{"_id"}}, s.unique[collection]...)
	for _, fields := range indexes {
		for _, other := range existing {
			if sameKey(doc, other, fields) {
				return strings.Join(fields, "_"), true
			}
		}
	}
	return "", false
}

func sameKey(a, b bson.M, fields []string) bool {
	for _, f := range fields {
		va, okA := lookupOK(a, f)
		vb, okB := lookupOK(b, f)
		if okA != okB {
			return false
		}
		if okA && !equalValues(va, true, vb) {
			return false
		}
	}
	return true
}

// Seed 直接寫入文件，不經過失敗注入
func (s *Store) Seed(collection core.MongoCollection, docs ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		m, err := clone(doc)
		if err != nil {
			return fmt.Errorf("seed %s: %w", collection, err)
		}
		ensureID(m)
		s.collections[collection] = append(s.collections[collection], m)
	}
	return nil
}

// All 回傳集合內所有文件的複本（依寫入順序）
func (s *Store) All(collection core.MongoCollection) []bson.M {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]bson.M, 0, len(s.collections[collection]))
	for _, doc := range s.collections[collection] {
		out = append(out, mustClone(doc))
	}
	return out
}

// FailOn 讓指定操作回傳 err；times <= 0 表示每次都失敗
func (s *Store) FailOn(op Op, collection core.MongoCollection, err error, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[failureKey{op, collection}] = &failure{err: err, remaining: times}
}

func (s *Store) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[failureKey]*failure)
}

// Calls 操作被呼叫的次數（含失敗）
func (s *Store) Calls(op Op, collection core.MongoCollection) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[failureKey{op, collection}]
}

// begin 須在持有寫鎖時呼叫
func (s *Store) begin(ctx context.Context, op Op, collection core.MongoCollection) error {
	key := failureKey{op, collection}
	s.calls[key]++
	if err := ctx.Err(); err != nil {
		return err
	}
	f, ok := s.failures[key]
	if !ok {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
		if f.remaining == 0 {
			delete(s.failures, key)
		}
	}
	return rawstore.Unavailable(string(op), collection, f.err)
}

func (s *Store) Find(ctx context.Context, collection core.MongoCollection, filter bson.M, opts ...rawstore.FindOption) ([]bson.M, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpFind, collection); err != nil {
		return nil, err
	}

	options := rawstore.BuildFindOptions(opts...)
	var out []bson.M
	for _, doc := range s.collections[collection] {
		ok, err := matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, mustClone(doc))
		}
	}
	if len(options.Sort) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, key := range options.Sort {
				c := compareForSort(lookup(out[i], key.Field), lookup(out[j], key.Field))
				if c == 0 {
					continue
				}
				if key.Direction < 0 {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if len(options.Projection) > 0 {
		for i, doc := range out {
			out[i] = project(doc, options.Projection)
		}
	}
	return out, nil
}

func (s *Store) Distinct(ctx context.Context, collection core.MongoCollection, field string, filter bson.M) ([]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpDistinct, collection); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []any
	for _, doc := range s.collections[collection] {
		ok, err := matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		v, present := lookupOK(doc, field)
		if !present {
			continue
		}
		key := fmt.Sprintf("%T:%v", v, v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// BulkUpsert 每個 op 以 updateOne + upsert 語意執行，整批在鎖內完成
func (s *Store) BulkUpsert(ctx context.Context, collection core.MongoCollection, ops []rawstore.UpsertOp) (rawstore.BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result rawstore.BulkResult
	if err := s.begin(ctx, OpBulkUpsert, collection); err != nil {
		return result, err
	}

	docs := s.collections[collection]
	staged := make([]bson.M, len(docs))
	copy(staged, docs)

	for _, op := range ops {
		idx := -1
		for i, doc := range staged {
			ok, err := matches(doc, op.Filter)
			if err != nil {
				return rawstore.BulkResult{}, err
			}
			if ok {
				idx = i
				break
			}
		}

		if idx >= 0 {
			result.Matched++
			updated := mustClone(staged[idx])
			changed, err := applyUpdate(updated, op.Update, false)
			if err != nil {
				return rawstore.BulkResult{}, err
			}
			if changed {
				normalized, err := clone(updated)
				if err != nil {
					return rawstore.BulkResult{}, err
				}
				staged[idx] = normalized
				result.Modified++
			}
			continue
		}

		doc := bson.M{}
		for k, v := range op.Filter {
			if strings.HasPrefix(k, "$") || isOperatorDoc(v) {
				continue
			}
			setPath(doc, k, v)
		}
		if _, err := applyUpdate(doc, op.Update, true); err != nil {
			return rawstore.BulkResult{}, err
		}
		normalized, err := clone(doc)
		if err != nil {
			return rawstore.BulkResult{}, err
		}
		ensureID(normalized)
		if index, dup := s.conflict(collection, staged, normalized); dup {
			return rawstore.BulkResult{}, rawstore.DuplicateKey(string(OpBulkUpsert), collection, fmt.Errorf("index %s", index))
		}
		staged = append(staged, normalized)
		result.Upserted++
	}

	s.collections[collection] = staged
	return result, nil
}

func (s *Store) DeleteMany(ctx context.Context, collection core.MongoCollection, filter bson.M) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpDeleteMany, collection); err != nil {
		return 0, err
	}

	kept := make([]bson.M, 0, len(s.collections[collection]))
	var deleted int64
	for _, doc := range s.collections[collection] {
		ok, err := matches(doc, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			deleted++
			continue
		}
		kept = append(kept, doc)
	}
	s.collections[collection] = kept
	return deleted, nil
}

func (s *Store) InsertMany(ctx context.Context, collection core.MongoCollection, docs []any) (rawstore.BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result rawstore.BulkResult
	if err := s.begin(ctx, OpInsertMany, collection); err != nil {
		return result, err
	}

	// ordered insert：衝突之前的文件已寫入，與 MongoDB 行為一致
	existing := s.collections[collection]
	for i, doc := range docs {
		m, err := clone(doc)
		if err != nil {
			s.collections[collection] = existing
			return result, fmt.Errorf("insert %s: %w", collection, err)
		}
		ensureID(m)
		if index, dup := s.conflict(collection, existing, m); dup {
			s.collections[collection] = existing
			return result, rawstore.DuplicateKey(string(OpInsertMany), collection, fmt.Errorf("document %d: index %s", i, index))
		}
		existing = append(existing, m)
		result.Inserted++
	}
	s.collections[collection] = existing
	return result, nil
}

// TxStore 額外實作 rawstore.Transactor：fn 失敗時還原所有集合
type TxStore struct {
	*Store
	Commits   int
	Rollbacks int
}

var _ rawstore.Transactor = (*TxStore)(nil)

func NewTx() *TxStore {
	return &TxStore{Store: New()}
}

func (t *TxStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	snapshot := make(map[core.MongoCollection][]bson.M, len(t.collections))
	for name, docs := range t.collections {
		snapshot[name] = append([]bson.M(nil), docs...)
	}
	t.mu.Unlock()

	if err := fn(ctx); err != nil {
		t.mu.Lock()
		t.collections = snapshot
		t.Rollbacks++
		t.mu.Unlock()
		return err
	}
	t.mu.Lock()
	t.Commits++
	t.mu.Unlock()
	return nil
}

// ─── document helpers ─────────────────────────────────────────────────────────

func clone(doc any) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func mustClone(doc bson.M) bson.M {
	out, err := clone(doc)
	if err != nil {
		panic(err)
	}
	return out
}

func ensureID(doc bson.M) {
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = primitive.NewObjectID()
	}
}

func project(doc bson.M, fields []string) bson.M {
	out := bson.M{"_id": doc["_id"]}
	for _, f := range fields {
		if v, ok := lookupOK(doc, f); ok {
			setPath(out, f, v)
		}
	}
	return out
}

func lookup(doc bson.M, path string) any {
	v, _ := lookupOK(doc, path)
	return v
}

func lookupOK(doc bson.M, path string) (any, bool) {
	var current any = doc
	for _, part := range strings.Split(path, ".") {
		switch node := current.(type) {
		case bson.M:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			current = v
		case bson.D:
			found := false
			for _, e := range node {
				if e.Key == part {
					current, found = e.Value, true
					break
				}
			}
			if !found {
				return nil, false
			}
		default:
			return nil, false
		}
	}
	return current, true
}

func setPath(doc bson.M, path string, value any) {
	parts := strings.Split(path, ".")
	node := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(bson.M)
		if !ok {
			next = bson.M{}
			node[part] = next
		}
		node = next
	}
	node[parts[len(parts)-1]] = value
}

func isOperatorDoc(v any) bool {
	m, ok := v.(bson.M)
	if !ok || len(m) == 0 {
		return false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

// ─── matching ─────────────────────────────────────────────────────────────────

func matches(doc bson.M, filter bson.M) (bool, error) {
	for key, cond := range filter {
		switch key {
		case "$or", "$and":
			clauses, ok := toFilterList(cond)
			if !ok {
				return false, fmt.Errorf("memstore: %s expects a list of documents", key)
			}
			anyMatch := false
			all := true
			for _, clause := range clauses {
				ok, err := matches(doc, clause)
				if err != nil {
					return false, err
				}
				anyMatch = anyMatch || ok
				all = all && ok
			}
			if key == "$or" && !anyMatch {
				return false, nil
			}
			if key == "$and" && !all {
				return false, nil
			}
			continue
		}

		value, present := lookupOK(doc, key)
		if isOperatorDoc(cond) {
			for op, operand := range cond.(bson.M) {
				ok, err := evalOperator(op, value, present, operand)
				if err != nil {
					return false, err
				}
				if !ok {
					return false, nil
				}
			}
			continue
		}
		if !equalValues(value, present, cond) {
			return false, nil
		}
	}
	return true, nil
}

func toFilterList(v any) ([]bson.M, bool) {
	switch list := v.(type) {
	case []bson.M:
		return list, true
	case bson.A:
		out := make([]bson.M, 0, len(list))
		for _, item := range list {
			m, ok := item.(bson.M)
			if !ok {
				return nil, false
			}
			out = append(out, m)
		}
		return out, true
	case []any:
		return toFilterList(bson.A(list))
	}
	return nil, false
}

func evalOperator(op string, value any, present bool, operand any) (bool, error) {
	switch op {
	case "$exists":
		want, _ := operand.(bool)
		return present == want, nil
	case "$ne":
		return !equalValues(value, present, operand), nil
	case "$in":
		items := reflect.ValueOf(operand)
		if items.Kind() != reflect.Slice {
			return false, fmt.Errorf("memstore: $in expects a list, got %T", operand)
		}
		for i := 0; i < items.Len(); i++ {
			if equalValues(value, present, items.Index(i).Interface()) {
				return true, nil
			}
		}
		return false, nil
	case "$gt", "$gte", "$lt", "$lte":
		if !present {
			return false, nil
		}
		c, ok := compare(value, operand)
		if !ok {
			return false, nil
		}
		switch op {
		case "$gt":
			return c > 0, nil
		case "$gte":
			return c >= 0, nil
		case "$lt":
			return c < 0, nil
		default:
			return c <= 0, nil
		}
	}
	return false, fmt.Errorf("memstore: unsupported operator %s", op)
}

func equalValues(value any, present bool, want any) bool {
	if want == nil {
		return !present || value == nil
	}
	if !present {
		return false
	}
	if arr, ok := value.(bson.A); ok {
		for _, item := range arr {
			if equalValues(item, true, want) {
				return true
			}
		}
		return false
	}
	if c, ok := compare(value, want); ok {
		return c == 0
	}
	return reflect.DeepEqual(normalize(value), normalize(want))
}

// normalize 把 BSON 與 Go 原生型別統一成可比較的值
func normalize(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Truncate(time.Millisecond)
	case primitive.DateTime:
		return x.Time().UTC()
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case primitive.Decimal128:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return x.String()
		}
		f, _ := d.Float64()
		return f
	}
	if isStringKind(v) {
		return reflect.ValueOf(v).String()
	}
	return v
}

func isStringKind(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.String
}

func compare(a, b any) (int, bool) {
	na, nb := normalize(a), normalize(b)
	switch x := na.(type) {
	case float64:
		y, ok := nb.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := nb.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case time.Time:
		y, ok := nb.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case bool:
		y, ok := nb.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	case primitive.ObjectID:
		y, ok := nb.(primitive.ObjectID)
		if !ok {
			return 0, false
		}
		return strings.Compare(x.Hex(), y.Hex()), true
	}
	return 0, false
}

// compareForSort 缺值排最前，與 MongoDB 的 null 排序一致
func compareForSort(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if c, ok := compare(a, b); ok {
		return c
	}
	return strings.Compare(fmt.Sprintf("%T", a), fmt.Sprintf("%T", b))
}

// ─── updates ──────────────────────────────────────────────────────────────────

// applyUpdate 支援 $set / $setOnInsert / $max / $inc / $unset
func applyUpdate(doc bson.M, update bson.M, inserting bool) (bool, error) {
	changed := false
	for op, fields := range update {
		m, ok := fields.(bson.M)
		if !ok {
			return false, fmt.Errorf("memstore: %s expects a document, got %T", op, fields)
		}
		switch op {
		case "$set":
			for k, v := range m {
				current, present := lookupOK(doc, k)
				if !present || !sameValue(current, v) {
					changed = true
				}
				setPath(doc, k, v)
			}
		case "$setOnInsert":
			if !inserting {
				continue
			}
			for k, v := range m {
				setPath(doc, k, v)
				changed = true
			}
		case "$max":
			for k, v := range m {
				current, present := lookupOK(doc, k)
				if present && current != nil {
					if c, ok := compare(v, current); ok && c <= 0 {
						continue
					}
				}
				setPath(doc, k, v)
				changed = true
			}
		case "$inc":
			for k, v := range m {
				delta, ok := normalize(v).(float64)
				if !ok {
					return false, fmt.Errorf("memstore: $inc on %s expects a number", k)
				}
				current, _ := normalize(lookup(doc, k)).(float64)
				setPath(doc, k, current+delta)
				changed = true
			}
		case "$unset":
			for k := range m {
				if _, present := lookupOK(doc, k); present {
					deletePath(doc, k)
					changed = true
				}
			}
		default:
			return false, fmt.Errorf("memstore: unsupported update operator %s", op)
		}
	}
	return changed, nil
}

func sameValue(a, b any) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	ca, errA := clone(bson.M{"v": a})
	cb, errB := clone(bson.M{"v": b})
	if errA != nil || errB != nil {
		return false
	}
	return reflect.DeepEqual(ca, cb)
}

func deletePath(doc bson.M, path string) {
	parts := strings.Split(path, ".")
	node := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(bson.M)
		if !ok {
			return
		}
		node = next
	}
	delete(node, parts[len(parts)-1])
}
