package sweepq

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type fakeValue struct {
	t    KeyType
	str  string
	list []string
	set  map[string]struct{}
	zset map[string]float64
	hash map[string]string
	ttl  int64
}

// fakeStore is an in-memory RedisLike. Unlike Redis it keeps empty
// collections around, so tests can model a queue drained between TYPE and
// the cardinality check. Destructive commands are recorded in writes.
type fakeStore struct {
	prefix string
	data   map[string]*fakeValue
	writes []string
	reads  []string
	failOn map[string]error
}

func newFakeStore(prefix string) *fakeStore {
	return &fakeStore{
		prefix: prefix,
		data:   make(map[string]*fakeValue),
		failOn: make(map[string]error),
	}
}

func (f *fakeStore) put(key string, v *fakeValue) {
	if v.ttl == 0 {
		v.ttl = TTLNoExpiry
	}
	f.data[f.prefix+key] = v
}

func (f *fakeStore) setString(key, val string) { f.put(key, &fakeValue{t: TypeString, str: val}) }

func (f *fakeStore) setList(key string, items ...string) {
	f.put(key, &fakeValue{t: TypeList, list: append([]string(nil), items...)})
}

func (f *fakeStore) setSet(key string, members ...string) {
	s := make(map[string]struct{}, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	f.put(key, &fakeValue{t: TypeSet, set: s})
}

func (f *fakeStore) setZSet(key string, members ...string) {
	z := make(map[string]float64, len(members))
	for i, m := range members {
		z[m] = float64(i)
	}
	f.put(key, &fakeValue{t: TypeZSet, zset: z})
}

func (f *fakeStore) setHash(key string, fields map[string]string) {
	f.put(key, &fakeValue{t: TypeHash, hash: fields})
}

func (f *fakeStore) setTTL(key string, ttl int64) {
	f.data[f.prefix+key].ttl = ttl
}

func (f *fakeStore) has(key string) bool {
	_, ok := f.data[f.prefix+key]
	return ok
}

func (f *fakeStore) list(key string) []string {
	v, ok := f.data[f.prefix+key]
	if !ok {
		return nil
	}
	return v.list
}

func (f *fakeStore) fail(cmd string) error {
	if err, ok := f.failOn[cmd]; ok {
		return err
	}
	return nil
}

func (f *fakeStore) get(key string) *fakeValue { return f.data[f.prefix+key] }

func (f *fakeStore) Keys(pattern string) ([]string, error) {
	if err := f.fail("KEYS"); err != nil {
		return nil, err
	}
	if pattern != "*" {
		return nil, fmt.Errorf("fakeStore only supports *, got %q", pattern)
	}
	var out []string
	for k := range f.data {
		if strings.HasPrefix(k, f.prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeStore) Type(key string) (KeyType, error) {
	f.reads = append(f.reads, "TYPE "+key)
	if err := f.fail("TYPE"); err != nil {
		return TypeNone, err
	}
	v := f.get(key)
	if v == nil {
		return TypeNone, nil
	}
	return v.t, nil
}

func (f *fakeStore) HGetAll(key string) (map[string]string, error) {
	if err := f.fail("HGETALL"); err != nil {
		return nil, err
	}
	out := map[string]string{}
	if v := f.get(key); v != nil && v.t == TypeHash {
		for k, val := range v.hash {
			out[k] = val
		}
	}
	return out, nil
}

func (f *fakeStore) Del(key string) (int64, error) {
	f.writes = append(f.writes, "DEL "+key)
	if err := f.fail("DEL"); err != nil {
		return 0, err
	}
	if _, ok := f.data[f.prefix+key]; !ok {
		return 0, nil
	}
	delete(f.data, f.prefix+key)
	return 1, nil
}

func (f *fakeStore) LLen(key string) (int64, error) {
	if v := f.get(key); v != nil {
		if v.t != TypeList {
			return 0, errors.New("WRONGTYPE")
		}
		return int64(len(v.list)), nil
	}
	return 0, nil
}

func (f *fakeStore) LRange(key string, start, stop int64) ([]string, error) {
	v := f.get(key)
	if v == nil {
		return []string{}, nil
	}
	if start != 0 || stop != -1 {
		return nil, fmt.Errorf("fakeStore only supports full ranges")
	}
	return append([]string(nil), v.list...), nil
}

func (f *fakeStore) LPush(key string, value string) (int64, error) {
	f.writes = append(f.writes, "LPUSH "+key+" "+value)
	if err := f.fail("LPUSH"); err != nil {
		return 0, err
	}
	v := f.get(key)
	if v == nil {
		v = &fakeValue{t: TypeList, ttl: TTLNoExpiry}
		f.data[f.prefix+key] = v
	}
	v.list = append([]string{value}, v.list...)
	return int64(len(v.list)), nil
}

func (f *fakeStore) SCard(key string) (int64, error) {
	if v := f.get(key); v != nil {
		return int64(len(v.set)), nil
	}
	return 0, nil
}

func (f *fakeStore) ZCard(key string) (int64, error) {
	if v := f.get(key); v != nil {
		return int64(len(v.zset)), nil
	}
	return 0, nil
}

func (f *fakeStore) TTL(key string) (int64, error) {
	if err := f.fail("TTL"); err != nil {
		return 0, err
	}
	v := f.get(key)
	if v == nil {
		return TTLMissing, nil
	}
	return v.ttl, nil
}

func (f *fakeStore) Ping() error { return f.fail("PING") }

func (f *fakeStore) keyCount() int { return len(f.data) }
