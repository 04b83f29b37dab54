package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"encoding/json"
	"sync"
	"unsafe"

	"github.com/jmolero/ComandaDB"
	"github.com/jmolero/ComandaDB/core"
	"github.com/jmolero/ComandaDB/db"
	"github.com/jmolero/ComandaDB/ps"
)

// Handle represents an open database instance
type Handle struct {
	instance *ComandaDB.Instance
	engine   *db.Engine
}

var (
	handlesMu  sync.Mutex
	handles    = make(map[int]*Handle)
	nextHandle = 1
)

func hostIdentity() core.Identity {
	return core.Identity{
		Name:  "ComandaDB Host",
		Email: "host@comanda.local",
	}
}

func registerHandle(instance *ComandaDB.Instance) C.int {
	if err := instance.Initialize(hostIdentity()); err != nil {
		return -1
	}

	handlesMu.Lock()
	defer handlesMu.Unlock()

	handle := nextHandle
	nextHandle++
	handles[handle] = &Handle{
		instance: instance,
		engine:   instance.Engine(hostIdentity()),
	}

	return C.int(handle)
}

func lookupHandle(handle C.int) *Handle {
	handlesMu.Lock()
	defer handlesMu.Unlock()
	return handles[int(handle)]
}

//export comanda_open_memory
func comanda_open_memory() C.int {
	store, err := ps.NewMemoryStore()
	if err != nil {
		return -1
	}
	return registerHandle(ComandaDB.Open(store))
}

//export comanda_open_file
func comanda_open_file(path *C.char) C.int {
	store, err := ps.NewFileStore(C.GoString(path))
	if err != nil {
		return -1
	}
	return registerHandle(ComandaDB.Open(store))
}

//export comanda_close
func comanda_close(handle C.int) {
	handlesMu.Lock()
	defer handlesMu.Unlock()
	delete(handles, int(handle))
}

//export comanda_query
func comanda_query(handle C.int, sql *C.char, paramsJSON *C.char) *C.char {
	return execute(handle, sql, paramsJSON, func(h *Handle, stmt string, params []any) db.Result {
		return h.engine.Query(stmt, params...)
	})
}

//export comanda_get
func comanda_get(handle C.int, sql *C.char, paramsJSON *C.char) *C.char {
	return execute(handle, sql, paramsJSON, func(h *Handle, stmt string, params []any) db.Result {
		return h.engine.Get(stmt, params...)
	})
}

//export comanda_run
func comanda_run(handle C.int, sql *C.char, paramsJSON *C.char) *C.char {
	return execute(handle, sql, paramsJSON, func(h *Handle, stmt string, params []any) db.Result {
		return h.engine.Run(stmt, params...)
	})
}

//export comanda_free
func comanda_free(ptr *C.char) {
	C.free(unsafe.Pointer(ptr))
}

// execute decodes the parameter array, runs the statement and returns the
// engine envelope as a JSON C string. The caller owns the returned string
// and releases it with comanda_free.
func execute(handle C.int, sql *C.char, paramsJSON *C.char, run func(*Handle, string, []any) db.Result) *C.char {
	h := lookupHandle(handle)
	if h == nil {
		return makeErrorResponse("invalid handle")
	}

	var params []any
	if paramsJSON != nil {
		raw := C.GoString(paramsJSON)
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &params); err != nil {
				return makeErrorResponse("invalid params: " + err.Error())
			}
		}
	}

	result := run(h, C.GoString(sql), params)
	jsonData, err := json.Marshal(result)
	if err != nil {
		return makeErrorResponse(err.Error())
	}
	return C.CString(string(jsonData))
}

func makeErrorResponse(msg string) *C.char {
	resp := db.Result{
		Success: false,
		Error:   msg,
	}
	jsonData, _ := json.Marshal(resp)
	return C.CString(string(jsonData))
}

func main() {}
