package trace

import (
	"context"
	"fmt"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/cache/tagging"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// Tables written by a DBTracer.
const (
	AccessTable   = "accesses"
	EvictionTable = "evictions"
)

// An AccessRecord is a row of the access table. Addresses and tags are hex
// strings.
type AccessRecord struct {
	Time        int64
	Cache       string
	Op          string
	Address     string
	SetID       int
	WayID       int
	Tag         string
	Outcome     string
	Speculative bool
}

// An EvictionRecord is a row of the eviction table.
type EvictionRecord struct {
	Time    int64
	Cache   string
	Address string
	SetID   int
	WayID   int
	Tag     string
	Status  string
	Dirty   bool
}

// A DBTracer is a hook that records the accesses and evictions of caches
// using a data recorder.
type DBTracer struct {
	dataRecorder datarecording.DataRecorder
}

// NewDBTracer creates a DBTracer and the tables it writes into.
func NewDBTracer(dataRecorder datarecording.DataRecorder) *DBTracer {
	t := &DBTracer{dataRecorder: dataRecorder}

	t.dataRecorder.CreateTable(AccessTable, AccessRecord{})
	t.dataRecorder.CreateTable(EvictionTable, EvictionRecord{})

	return t
}

// Func records the access or eviction carried by the hook context.
func (t *DBTracer) Func(ctx hooking.HookCtx) {
	name := ""
	if named, ok := ctx.Domain.(interface{ Name() string }); ok {
		name = named.Name()
	}

	switch info := ctx.Item.(type) {
	case cache.AccessInfo:
		t.dataRecorder.InsertData(AccessTable, AccessRecord{
			Time:        int64(info.Time),
			Cache:       name,
			Op:          info.Op.String(),
			Address:     hex(info.Address),
			SetID:       info.SetID,
			WayID:       info.WayID,
			Tag:         hex(info.Tag),
			Outcome:     info.Outcome.String(),
			Speculative: info.Speculative,
		})
	case cache.EvictionInfo:
		t.dataRecorder.InsertData(EvictionTable, EvictionRecord{
			Time:    int64(info.Time),
			Cache:   name,
			Address: hex(info.Address),
			SetID:   info.SetID,
			WayID:   info.WayID,
			Tag:     hex(info.Tag),
			Status:  info.Status.String(),
			Dirty:   info.Status == tagging.Modified,
		})
	}
}

func hex(v uint64) string {
	return fmt.Sprintf("0x%x", v)
}

// MapTables prepares a reader for the tables written by a DBTracer.
func MapTables(r datarecording.DataReader) {
	r.MapTable(AccessTable, AccessRecord{})
	r.MapTable(EvictionTable, EvictionRecord{})
}

// Accesses reads recorded accesses. The reader must have been prepared with
// MapTables.
func Accesses(
	ctx context.Context,
	r datarecording.DataReader,
	params datarecording.QueryParams,
) ([]AccessRecord, int, error) {
	return datarecording.QueryAs[AccessRecord](ctx, r, AccessTable, params)
}

// Evictions reads recorded evictions. The reader must have been prepared
// with MapTables.
func Evictions(
	ctx context.Context,
	r datarecording.DataReader,
	params datarecording.QueryParams,
) ([]EvictionRecord, int, error) {
	return datarecording.QueryAs[EvictionRecord](ctx, r, EvictionTable, params)
}
