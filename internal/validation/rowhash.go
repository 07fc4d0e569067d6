package validation

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/reloquent/parity/internal/gateway"
	"github.com/reloquent/parity/internal/rules"
)

func evaluateRowHash(r rules.Rule, src, tgt *gateway.QueryResult) Outcome {
	srcHash, tgtHash := rowDigest(src), rowDigest(tgt)
	if srcHash == tgtHash && len(src.Rows) == len(tgt.Rows) {
		return success(r)
	}
	return failure(r, map[string]any{
		"column":      r.Column,
		"source_hash": srcHash,
		"target_hash": tgtHash,
		"source_rows": len(src.Rows),
		"target_rows": len(tgt.Rows),
		"message": fmt.Sprintf("row digests ordered by %s do not match: source=%d rows, target=%d rows",
			r.Column, len(src.Rows), len(tgt.Rows)),
	})
}

// rowDigest hashes every cell in row order. Each row is written as its cell
// count followed by each cell's Go type and value, both length-prefixed, so
// int64(1) and "1" differ and no value can imitate a boundary or a NULL.
// Column names are excluded so that identifier case differences between
// systems do not matter.
func rowDigest(res *gateway.QueryResult) string {
	h := sha256.New()
	var n [8]byte
	writeField := func(b []byte) {
		binary.BigEndian.PutUint64(n[:], uint64(len(b)))
		h.Write(n[:])
		h.Write(b)
	}
	for _, row := range res.Rows {
		binary.BigEndian.PutUint64(n[:], uint64(len(row)))
		h.Write(n[:])
		for _, v := range row {
			if v == nil {
				writeField([]byte("nil"))
				continue
			}
			writeField([]byte(fmt.Sprintf("%T", v)))
			writeField([]byte(fmt.Sprintf("%v", v)))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
