// Package main provides C-compatible exports for the opc library.
// Build with: go build -buildmode=c-shared -o opc.dll
package main

/*
#include <stdlib.h>
#include <stdint.h>

// Result structure for operations that return data
typedef struct {
    char* data;
    int   data_len;
    char* error;
} OpcResult;

// PartInput for creating packages
typedef struct {
    char* name;
    char* content_type;
    char* data;
    int   data_len;
} COpcPart;

// RelationshipInput for creating packages. source is NULL or "/" for
// package relationships.
typedef struct {
    char* source;
    char* target;
    char* rel_type;
    char* id;
    int   external;
} COpcRelationship;
*/
import "C"

import (
	"bytes"
	"unsafe"

	json "github.com/goccy/go-json"

	"github.com/logicossoftware/go-opc"
)

func main() {}

// OpcFreeResult frees memory allocated by other Opc functions.
// Must be called to avoid memory leaks.
//
//export OpcFreeResult
func OpcFreeResult(result C.OpcResult) {
	if result.data != nil {
		C.free(unsafe.Pointer(result.data))
	}
	if result.error != nil {
		C.free(unsafe.Pointer(result.error))
	}
}

// OpcFreeString frees a C string allocated by Go.
//
//export OpcFreeString
func OpcFreeString(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

// OpcSetDefaultLimits sets the process-wide zip bomb limits. Zero values
// restore the defaults. Returns NULL on success or an error message.
//
//export OpcSetDefaultLimits
func OpcSetDefaultLimits(minInflateRatio C.double, maxEntrySize C.uint64_t) *C.char {
	err := opc.SetDefaultLimits(opc.Limits{
		MinInflateRatio: float64(minInflateRatio),
		MaxEntrySize:    uint64(maxEntrySize),
	})
	if err != nil {
		return C.CString(err.Error())
	}
	return nil
}

func makeResult(data []byte) C.OpcResult {
	var result C.OpcResult
	if len(data) > 0 {
		result.data = (*C.char)(C.CBytes(data))
		result.data_len = C.int(len(data))
	}
	return result
}

func makeError(err error) C.OpcResult {
	var result C.OpcResult
	result.error = C.CString(err.Error())
	return result
}

func openBytes(data *C.char, dataLen C.int) (*opc.Package, error) {
	goData := C.GoBytes(unsafe.Pointer(data), dataLen)
	return opc.Open(bytes.NewReader(goData), int64(len(goData)), opc.ReadOnly)
}

// OpcCreate builds a package from parts and relationships.
// Parameters:
//   - parts: array of COpcPart structs
//   - partCount: number of parts
//   - rels: array of COpcRelationship structs (can be NULL)
//   - relCount: number of relationships
//   - compression: ZIP method for the entries (0=Store, 8=Deflate, 93=ZSTD)
//
// Returns OpcResult with the package bytes or error. Call OpcFreeResult when done.
//
//export OpcCreate
func OpcCreate(
	parts *C.COpcPart,
	partCount C.int,
	rels *C.COpcRelationship,
	relCount C.int,
	compression C.uint16_t,
) C.OpcResult {
	pkg := opc.Create()

	if partCount > 0 && parts != nil {
		for _, p := range unsafe.Slice(parts, int(partCount)) {
			part, err := pkg.CreatePart(opc.PartName(C.GoString(p.name)), C.GoString(p.content_type))
			if err != nil {
				return makeError(err)
			}
			w, err := part.Writer()
			if err != nil {
				return makeError(err)
			}
			w.Write(C.GoBytes(unsafe.Pointer(p.data), p.data_len))
			if err := w.Close(); err != nil {
				return makeError(err)
			}
		}
	}

	if relCount > 0 && rels != nil {
		for _, r := range unsafe.Slice(rels, int(relCount)) {
			mode := opc.Internal
			if r.external != 0 {
				mode = opc.External
			}
			var id string
			if r.id != nil {
				id = C.GoString(r.id)
			}
			target, relType := C.GoString(r.target), C.GoString(r.rel_type)
			source := ""
			if r.source != nil {
				source = C.GoString(r.source)
			}
			var err error
			if source == "" || source == "/" {
				_, err = pkg.AddRelationship(target, mode, relType, id)
			} else {
				var part *opc.Part
				if part, err = pkg.Part(opc.PartName(source)); err == nil {
					_, err = part.AddRelationship(target, mode, relType, id)
				}
			}
			if err != nil {
				return makeError(err)
			}
		}
	}

	var buf bytes.Buffer
	if err := pkg.Save(&buf, opc.WithCompression(opc.Compression(compression))); err != nil {
		return makeError(err)
	}
	return makeResult(buf.Bytes())
}

// OpcListParts opens a package and returns a JSON description of its parts
// and relationships.
// Parameters:
//   - data: pointer to package bytes
//   - dataLen: length of the data
//
// Returns OpcResult with JSON string or error. Call OpcFreeResult when done.
// The JSON structure contains: parts (name, contentType, size,
// relationships) and relationships (the package relationships).
//
//export OpcListParts
func OpcListParts(data *C.char, dataLen C.int) C.OpcResult {
	pkg, err := openBytes(data, dataLen)
	if err != nil {
		return makeError(err)
	}
	defer pkg.Close()

	parts, err := pkg.Parts()
	if err != nil {
		return makeError(err)
	}
	rootRels, err := pkg.Relationships()
	if err != nil {
		return makeError(err)
	}

	result := map[string]any{
		"parts":         make([]map[string]any, len(parts)),
		"relationships": relationshipsJSON(rootRels),
	}
	items := result["parts"].([]map[string]any)
	for i, p := range parts {
		items[i] = map[string]any{
			"name":          string(p.Name()),
			"contentType":   p.ContentType(),
			"size":          p.Size(),
			"relationships": relationshipsJSON(p.Relationships()),
		}
	}

	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return makeError(err)
	}
	return makeResult(jsonBytes)
}

func relationshipsJSON(rels []*opc.Relationship) []map[string]any {
	out := make([]map[string]any, len(rels))
	for i, r := range rels {
		out[i] = map[string]any{
			"id":         r.ID(),
			"type":       r.Type(),
			"target":     r.Target(),
			"targetMode": r.TargetMode().String(),
		}
	}
	return out
}

// OpcGetPartData retrieves the inflated content of one part.
// Parameters:
//   - data: pointer to package bytes
//   - dataLen: length of the data
//   - partName: the part name, e.g. "/word/document.xml"
//
// Returns OpcResult with part data or error. Call OpcFreeResult when done.
//
//export OpcGetPartData
func OpcGetPartData(data *C.char, dataLen C.int, partName *C.char) C.OpcResult {
	pkg, err := openBytes(data, dataLen)
	if err != nil {
		return makeError(err)
	}
	defer pkg.Close()

	part, err := pkg.Part(opc.PartName(C.GoString(partName)))
	if err != nil {
		return makeError(err)
	}
	b, err := part.Bytes()
	if err != nil {
		return makeError(err)
	}
	return makeResult(b)
}

// OpcValidate opens a package and inflates every part under the current
// limits. Returns NULL on success, or an error message string on failure.
// Call OpcFreeString on the result if non-NULL.
//
//export OpcValidate
func OpcValidate(data *C.char, dataLen C.int) *C.char {
	pkg, err := openBytes(data, dataLen)
	if err != nil {
		return C.CString(err.Error())
	}
	defer pkg.Close()

	parts, err := pkg.Parts()
	if err != nil {
		return C.CString(err.Error())
	}
	for _, p := range parts {
		if _, err := p.Bytes(); err != nil {
			return C.CString(err.Error())
		}
	}
	return nil
}

// OpcGetPartCount returns the number of parts in a package, relationship
// parts included. Returns -1 on error.
//
//export OpcGetPartCount
func OpcGetPartCount(data *C.char, dataLen C.int) C.int {
	pkg, err := openBytes(data, dataLen)
	if err != nil {
		return -1
	}
	defer pkg.Close()

	parts, err := pkg.Parts()
	if err != nil {
		return -1
	}
	return C.int(len(parts))
}
