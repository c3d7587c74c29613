package batch

import (
	"encoding/hex"
	"slices"
	"strconv"

	"github.com/zeebo/blake3"

	"annotcore/internal/annotation"
)

// Fingerprint hashes the content of a tier: its kind and every element's
// position, label and attributes. The tier name is not included, so the
// same content on two corpora hashes alike.
func Fingerprint(tier annotation.Tier) string {
	h := blake3.New()
	write := func(parts ...string) {
		for _, p := range parts {
			_, _ = h.WriteString(p)
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte{'\n'})
	}
	attrs := func(a annotation.Attributes) string {
		keys := make([]string, 0, len(a))
		for k, v := range a {
			if v != nil {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
		out := make([]byte, 0, 16*len(keys))
		for _, k := range keys {
			out = append(out, k...)
			out = append(out, '=')
			out = append(out, annotation.ValueString(a[k])...)
			out = append(out, 0x1f)
		}
		return string(out)
	}
	num := func(n int64) string { return strconv.FormatInt(n, 10) }

	if tier == nil {
		return ""
	}
	write(tier.Kind().String())
	switch t := tier.(type) {
	case *annotation.IntervalTier:
		for _, iv := range t.Intervals() {
			write(num(int64(iv.TMin)), num(int64(iv.TMax)), iv.Text, attrs(iv.Attributes))
		}
	case *annotation.PointTier:
		for _, p := range t.Points() {
			write(num(int64(p.Time)), p.Text, attrs(p.Attributes))
		}
	case *annotation.SequenceTier:
		for _, s := range t.Sequences() {
			write(num(int64(s.IndexFrom)), num(int64(s.IndexTo)), s.Text, attrs(s.Attributes))
		}
	case *annotation.RelationTier:
		for _, r := range t.Relations() {
			write(num(int64(r.IndexFrom)), num(int64(r.IndexTo)), r.Text, attrs(r.Attributes))
		}
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
