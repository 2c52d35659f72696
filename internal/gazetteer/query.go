package gazetteer

import "strings"

// dialectFragments are the store-specific pieces of a source query. The
// filter fragments reference named parameters (@rkey, @centroid, @xmin..@ymax,
// @lat, @lng, @q, @limit) that the source binds at execution time; nothing
// client-supplied is ever interpolated into the query text.
type dialectFragments struct {
	// CoordText formats a numeric coordinate expression as decimal(10,6)
	// text, the shape the normalization boundary parses back.
	CoordText func(expr string) string
	// Distance is an expression yielding integer meters from the centroid,
	// selected as distance_m. Only used when a centroid is present.
	Distance string
	// Spatial filters rows to the planner's bounding box.
	Spatial string
	// Text filters rows by case-insensitive substring match on the display
	// name column.
	Text string
}

// selectList projects the native schema onto the reserved aliases plus the
// pass-through attribute columns.
func selectList(spec SourceSpec, d dialectFragments) string {
	parts := []string{
		spec.Key + " as " + colKey,
		d.CoordText(spec.Latitude) + " as " + colLatitude,
		d.CoordText(spec.Longitude) + " as " + colLongitude,
		spec.Name + " as " + colName,
	}
	parts = append(parts, spec.Columns...)
	return strings.Join(parts, ", ")
}

// keyQuery builds the single-row lookup scoped by the source's native
// identifier column.
func keyQuery(spec SourceSpec, d dialectFragments) string {
	var b strings.Builder
	b.WriteString("select ")
	b.WriteString(selectList(spec, d))
	b.WriteString(" from ")
	b.WriteString(spec.Table)
	b.WriteString(" where ")
	b.WriteString(spec.Key)
	b.WriteString(" = @rkey")
	return b.String()
}

// nearestQuery builds the shared nearest-search SELECT. Only the non-empty
// filter fragments (bounding box, text match, spec predicates) are AND-joined
// into the WHERE clause; with no fragments at all the statement has no WHERE
// and selects an arbitrary slice of the dataset, see
// SearchParams.Unconstrained. Distance ordering applies only when a centroid
// is present.
func nearestQuery(spec SourceSpec, p SearchParams, d dialectFragments) string {
	var b strings.Builder
	b.WriteString("select ")
	b.WriteString(selectList(spec, d))
	if p.Centroid != nil {
		b.WriteString(", ")
		b.WriteString(d.Distance)
		b.WriteString(" as ")
		b.WriteString(colDistance)
	}
	b.WriteString(" from ")
	b.WriteString(spec.Table)

	var conds []string
	if p.Centroid != nil {
		conds = append(conds, d.Spatial)
	}
	if p.Query != "" {
		conds = append(conds, d.Text)
	}
	conds = append(conds, spec.Predicates...)
	if len(conds) > 0 {
		b.WriteString(" where ")
		b.WriteString(strings.Join(conds, " and "))
	}

	if p.Centroid != nil {
		b.WriteString(" order by ")
		b.WriteString(colDistance)
	}
	b.WriteString(" limit @limit")
	return b.String()
}
