package sqlite

import (
	"fmt"

	"github.com/louisbranch/oracles/internal/oracle/history/filter"
)

// listPlan builds the keyset query for one page. Entries are ordered by
// insertion sequence, which is also creation order.
type listPlan struct {
	descending bool
	condition  filter.SQLCondition
	afterSeq   int64
	pageSize   int
}

func (p listPlan) sql() (string, []any) {
	where := "1 = 1"
	var params []any
	if p.afterSeq > 0 {
		if p.descending {
			where += " AND seq < ?"
		} else {
			where += " AND seq > ?"
		}
		params = append(params, p.afterSeq)
	}
	if p.condition.Clause != "" {
		where += " AND " + p.condition.Clause
		params = append(params, p.condition.Params...)
	}

	order := "ORDER BY seq ASC"
	if p.descending {
		order = "ORDER BY seq DESC"
	}

	query := fmt.Sprintf(`
SELECT seq, id, oracle_id, oracle_name, roll, result, original_result, shortcut, region, language, created_at
FROM entries
WHERE %s
%s
LIMIT %d`, where, order, p.pageSize+1)
	return query, params
}
