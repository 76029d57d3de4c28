package cache

import (
	"strings"
	"testing"
	"time"
)

func joinWithSeparator(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

func TestDefaultKeySerializer_BasicTypes(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "empty key",
			key:  NewKey(),
			want: "",
		},
		{
			name: "namespace only",
			key:  NewKey("news"),
			want: `string:"news"`,
		},
		{
			name: "list key",
			key:  NewKey("news", 0, "PUBLISHED"),
			want: joinWithSeparator(`string:"news"`, "int:0", `string:"PUBLISHED"`),
		},
		{
			name: "multiple basic types",
			key:  NewKey("get", 1, true, 3.14),
			want: joinWithSeparator(`string:"get"`, "int:1", "bool:true", "float64:3.14"),
		},
		{
			name: "separator inside string is quoted",
			key:  NewKey("hello::world"),
			want: `string:"hello::world"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey(tt.key)
			if got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_TypesDoNotCollide(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	keys := []Key{
		NewKey("news", 1),
		NewKey("news", int64(1)),
		NewKey("news", "1"),
		NewKey("news", 1.0),
		NewKey("news", uint(1)),
		NewKey("news::1"),
	}

	seen := map[string]Key{}
	for _, k := range keys {
		s := serializer.SerializeKey(k)
		if prev, ok := seen[s]; ok {
			t.Errorf("keys %v and %v serialize to the same string %q", prev, k, s)
		}
		seen[s] = k
	}
}

func TestDefaultKeySerializer_NilValues(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "nil interface",
			key:  NewKey("byPtr", nil),
			want: joinWithSeparator(`string:"byPtr"`, "nil"),
		},
		{
			name: "nil pointer",
			key:  NewKey("byRef", (*int)(nil)),
			want: joinWithSeparator(`string:"byRef"`, "nil"),
		},
		{
			name: "nil slice",
			key:  NewKey("bySlice", ([]int)(nil)),
			want: joinWithSeparator(`string:"bySlice"`, "[]int:nil"),
		},
		{
			name: "nil map",
			key:  NewKey("byMap", (map[string]int)(nil)),
			want: joinWithSeparator(`string:"byMap"`, "map[string]int:nil"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey(tt.key)
			if got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_Collections(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "empty slice",
			key:  NewKey([]int{}),
			want: "[]int[]",
		},
		{
			name: "int slice",
			key:  NewKey([]int{1, 2, 3}),
			want: "[]int[int:1,int:2,int:3]",
		},
		{
			name: "nested slice",
			key:  NewKey([][]int{{1, 2}, {3}}),
			want: "[][]int[[]int[int:1,int:2],[]int[int:3]]",
		},
		{
			name: "array",
			key:  NewKey([2]string{"a", "b"}),
			want: `[2]string[string:"a",string:"b"]`,
		},
		{
			name: "map sorted by key",
			key:  NewKey(map[string]int{"status": 1, "author": 2}),
			want: `map[string]int{string:"author"=int:2,string:"status"=int:1}`,
		},
		{
			name: "empty map",
			key:  NewKey(map[string]string{}),
			want: "map[string]string{}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey(tt.key)
			if got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_MapOrderIsStable(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	a := map[string]any{"status": "PUBLISHED", "author": "ana", "tag": "local", "page": 3}
	b := map[string]any{"page": 3, "tag": "local", "author": "ana", "status": "PUBLISHED"}

	for i := 0; i < 20; i++ {
		if serializer.SerializeKey(NewKey("news", a)) != serializer.SerializeKey(NewKey("news", b)) {
			t.Fatal("maps with equal contents must serialize identically")
		}
	}
}

func TestDefaultKeySerializer_Structs(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	type Filters struct {
		Status string
		Page   int
	}

	type FiltersWithPrivate struct {
		Status string
		secret string
	}

	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "simple struct",
			key:  NewKey(Filters{Status: "DRAFT", Page: 2}),
			want: `cache.Filters{Status:string:"DRAFT",Page:int:2}`,
		},
		{
			name: "unexported fields ignored",
			key:  NewKey(FiltersWithPrivate{Status: "DRAFT", secret: "x"}),
			want: `cache.FiltersWithPrivate{Status:string:"DRAFT"}`,
		},
		{
			name: "pointer to struct",
			key:  NewKey(&Filters{Status: "DRAFT"}),
			want: `cache.Filters{Status:string:"DRAFT",Page:int:0}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey(tt.key)
			if got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_TextMarshaler(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	got := serializer.SerializeKey(NewKey("since", ts))
	want := joinWithSeparator(`string:"since"`, `time.Time:"2025-03-01T12:00:00Z"`)
	if got != want {
		t.Errorf("SerializeKey() = %v, want %v", got, want)
	}
}

func TestDefaultKeySerializer_Pointers(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	value := 42
	if got := serializer.SerializeKey(NewKey(&value)); got != "int:42" {
		t.Errorf("pointer should serialize its target, got %v", got)
	}
}

func TestDefaultKeySerializer_Functions(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	testFunc := func() {}

	key1 := serializer.SerializeKey(NewKey("withFunc", testFunc))
	key2 := serializer.SerializeKey(NewKey("withFunc", testFunc))

	if key1 != key2 {
		t.Errorf("Function serialization should be stable: %v != %v", key1, key2)
	}

	funcPrefix := joinWithSeparator(`string:"withFunc"`, "func():0x")
	if !strings.HasPrefix(key1, funcPrefix) {
		t.Errorf("Function serialization should use the type and address, got: %v", key1)
	}
}

func TestDefaultKeySerializer_Channels(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	ch := make(chan int)
	key := serializer.SerializeKey(NewKey(ch))

	if !strings.HasPrefix(key, "chan int:0x") {
		t.Errorf("Channel should be serialized by address, got: %v", key)
	}
}

func TestHasSerializedPrefix(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	tests := []struct {
		name   string
		key    Key
		prefix Key
		want   bool
	}{
		{name: "empty prefix matches all", key: NewKey("news", 1), prefix: NewKey(), want: true},
		{name: "exact match", key: NewKey("news", 1), prefix: NewKey("news", 1), want: true},
		{name: "component prefix", key: NewKey("news", 1, "PUBLISHED"), prefix: NewKey("news"), want: true},
		{name: "partial component", key: NewKey("newsletter", 1), prefix: NewKey("news"), want: false},
		{name: "different type", key: NewKey("news", int64(1)), prefix: NewKey("news", 1), want: false},
		{name: "longer prefix", key: NewKey("news"), prefix: NewKey("news", 1), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hasSerializedPrefix(serializer.SerializeKey(tt.key), serializer.SerializeKey(tt.prefix))
			if got != tt.want {
				t.Errorf("hasSerializedPrefix() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKey_Append(t *testing.T) {
	base := NewKey("news", "detail")
	a := base.Append(1)
	b := base.Append(2)

	if len(base) != 2 {
		t.Errorf("Append must not modify the receiver, got %v", base)
	}
	if a[2] != 1 || b[2] != 2 {
		t.Errorf("appended keys share storage: %v %v", a, b)
	}
}

func BenchmarkDefaultKeySerializer(b *testing.B) {
	serializer := NewDefaultKeySerializer()
	key := NewKey("news", 1, "PUBLISHED", []int{1, 2, 3}, map[string]int{"test": 1})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		serializer.SerializeKey(key)
	}
}
