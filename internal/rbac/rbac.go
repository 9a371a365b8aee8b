// Package rbac wires the casbin enforcer that backs both route-level access
// control and the permission tokens schema actions declare.
package rbac

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/faciam-dev/gadmin/internal/server/middleware"
)

// ActExecute is the casbin action used for permission-token checks.
const ActExecute = "execute"

// NewEnforcer builds the in-memory enforcer with the request model used
// across the API: users inherit roles, objects match with keyMatch2.
func NewEnforcer() (*casbin.Enforcer, error) {
	m := model.NewModel()
	m.AddDef("r", "r", "sub, obj, act")
	m.AddDef("p", "p", "sub, obj, act")
	m.AddDef("g", "g", "_, _")
	m.AddDef("e", "e", "some(where (p.eft == allow))")
	m.AddDef("m", "m", "g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && r.act == p.act")
	return casbin.NewEnforcer(m)
}

// Load fills the enforcer with role policies, permission grants and user
// role groupings from the admin tables.
func Load(ctx context.Context, db *sql.DB, driver, prefix string, e *casbin.Enforcer) error {
	if db == nil || e == nil {
		return nil
	}
	roleTbl := prefix + "roles"
	polTbl := prefix + "role_policies"
	permTbl := prefix + "role_permissions"
	urTbl := prefix + "user_roles"

	rows, err := db.QueryContext(ctx, fmt.Sprintf(
		`SELECT r.name, p.path, p.method FROM %s r JOIN %s p ON r.id=p.role_id`, roleTbl, polTbl))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var role, path, method string
		if err := rows.Scan(&role, &path, &method); err != nil {
			return err
		}
		e.AddPolicy(role, path, method)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	rows2, err := db.QueryContext(ctx, fmt.Sprintf(
		`SELECT r.name, p.permission FROM %s r JOIN %s p ON r.id=p.role_id`, roleTbl, permTbl))
	if err != nil {
		return err
	}
	defer rows2.Close()
	for rows2.Next() {
		var role, perm string
		if err := rows2.Scan(&role, &perm); err != nil {
			return err
		}
		e.AddPolicy(role, perm, ActExecute)
	}
	if err := rows2.Err(); err != nil {
		return err
	}

	rows3, err := db.QueryContext(ctx, fmt.Sprintf(
		`SELECT ur.user_id, r.name FROM %s ur JOIN %s r ON ur.role_id=r.id`, urTbl, roleTbl))
	if err != nil {
		return err
	}
	defer rows3.Close()
	for rows3.Next() {
		var uid int64
		var role string
		if err := rows3.Scan(&uid, &role); err != nil {
			return err
		}
		e.AddGroupingPolicy(fmt.Sprint(uid), role)
	}
	return rows3.Err()
}

// Authorizer adapts the enforcer to the engine's permission-token check.
type Authorizer struct {
	Enf     *casbin.Enforcer
	Resolve middleware.RoleResolver
}

// Can reports whether the calling user (or any of their roles) holds the
// permission token.
func (a *Authorizer) Can(ctx context.Context, token string) bool {
	if a == nil || a.Enf == nil {
		return false
	}
	sub := middleware.UserFromContext(ctx)
	subjects := []string{sub}
	if a.Resolve != nil {
		if roles, err := a.Resolve(ctx, sub); err == nil {
			subjects = append(subjects, roles...)
		}
	}
	for _, s := range subjects {
		if ok, _ := a.Enf.Enforce(s, token, ActExecute); ok {
			return true
		}
	}
	return false
}

// RolesOf returns role names of a user identified by numeric ID or username.
func RolesOf(ctx context.Context, db *sql.DB, driver, prefix, user string) ([]string, error) {
	if db == nil {
		return nil, nil
	}
	isID := user != ""
	for _, c := range user {
		if c < '0' || c > '9' {
			isID = false
			break
		}
	}
	ur := prefix + "user_roles"
	users := prefix + "users"
	rolesTbl := prefix + "roles"
	ph := "?"
	if driver == "postgres" {
		ph = "$1"
	}
	var q string
	if isID {
		q = fmt.Sprintf("SELECT r.name FROM %s ur JOIN %s r ON r.id = ur.role_id WHERE ur.user_id = %s ORDER BY r.name", ur, rolesTbl, ph)
	} else {
		q = fmt.Sprintf("SELECT r.name FROM %s ur JOIN %s u ON u.id = ur.user_id JOIN %s r ON r.id = ur.role_id WHERE u.username = %s ORDER BY r.name", ur, users, rolesTbl, ph)
	}
	rows, err := db.QueryContext(ctx, q, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
