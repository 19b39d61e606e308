package catalog

import (
	"fmt"
	"strings"
)

// dependencyQueryBase pairs every object with the views that internally
// depend on it. Both sides must have a pg_class_info entry.
const dependencyQueryBase = `
select
    v_depend.src_oid,
    case
        when src_obj.relkind = 'r' then 'table'
        when src_obj.relkind = 'v' then 'view'
    end as src_object_type,
    v_depend.src_schemaname,
    v_depend.src_objectname,
    v_depend.dependent_viewoid,
    case
        when tgt_obj.relkind = 'r' then 'table'
        when tgt_obj.relkind = 'v' then 'view'
    end as tgt_object_type,
    v_depend.dependent_schemaname,
    v_depend.dependent_objectname
from
    (
        select distinct
            srcobj.oid as src_oid,
            srcnsp.nspname as src_schemaname,
            srcobj.relname as src_objectname,
            tgtobj.oid as dependent_viewoid,
            tgtnsp.nspname as dependent_schemaname,
            tgtobj.relname as dependent_objectname
        from pg_catalog.pg_class as srcobj
        inner join pg_catalog.pg_depend as srcdep
            on srcobj.oid = srcdep.refobjid
        inner join pg_catalog.pg_depend as tgtdep
            on srcdep.objid = tgtdep.objid
        inner join pg_catalog.pg_class as tgtobj
            on tgtdep.refobjid = tgtobj.oid
            and srcobj.oid <> tgtobj.oid
        left outer join pg_catalog.pg_namespace as srcnsp
            on srcobj.relnamespace = srcnsp.oid
        left outer join pg_catalog.pg_namespace as tgtnsp
            on tgtobj.relnamespace = tgtnsp.oid
        where tgtdep.deptype = 'i'
            and tgtobj.relkind = 'v'
    ) v_depend
inner join pg_class src_obj
    on v_depend.src_oid = src_obj.oid
inner join pg_class_info src_obj_info
    on v_depend.src_oid = src_obj_info.reloid
inner join pg_class tgt_obj
    on v_depend.dependent_viewoid = tgt_obj.oid
inner join pg_class_info tgt_obj_info
    on v_depend.dependent_viewoid = tgt_obj_info.reloid`

// buildDependencyQuery appends the schema exclusion filter with n
// positional placeholders.
func buildDependencyQuery(n int) string {
	var b strings.Builder
	b.WriteString(dependencyQueryBase)
	if n > 0 {
		placeholders := make([]string, n)
		for i := range placeholders {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
		b.WriteString("\nwhere\n    v_depend.dependent_schemaname not in (")
		b.WriteString(strings.Join(placeholders, ", "))
		b.WriteString(")")
	}
	b.WriteString("\norder by 3, 4, 7, 8")
	return b.String()
}
