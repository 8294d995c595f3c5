// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrator

import (
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// fingerprint computes a deterministic cache key over the whitelisted
// subset of req's fields, mirroring middleware.Cache's blake2b-keyed
// approach. RequestID and TimestampMs are deliberately excluded so
// equivalent requests share a cache entry.
func fingerprint(req AdRequest) string {
	h, _ := blake2b.New256(nil)

	writeKV(h, "protocol", dispatchKey(req))
	writeKV(h, "user", req.UserID)
	writeKV(h, "device", req.DeviceID)
	writeKV(h, "placement", req.PlacementID)
	writeKV(h, "content", req.ContentID)
	writeKV(h, "wh", strconv.Itoa(req.Width)+"x"+strconv.Itoa(req.Height))

	proto := dispatchKey(req)
	if ext, ok := req.Extensions[proto]; ok {
		keys := make([]string, 0, len(ext))
		for k := range ext {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b, _ := json.Marshal(ext[k])
			writeKV(h, "ext:"+k, string(b))
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

func writeKV(h interface{ Write([]byte) (int, error) }, k, v string) {
	h.Write([]byte(k))
	h.Write([]byte{0})
	h.Write([]byte(v))
	h.Write([]byte{0})
}

func cacheKey(fp string) string { return "cache:" + fp }
