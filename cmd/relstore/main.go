// Command relstore is a single binary exposing one verb per invocation
// against a relstore data directory: create-table, insert, select,
// delete, dump.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"relstore/internal/buffer"
	"relstore/internal/catalog"
	"relstore/internal/common"
	"relstore/internal/config"
	"relstore/internal/pagestore"
	"relstore/internal/query"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfgPath := os.Getenv("RELSTORE_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.WithError(err).Fatal("relstore: loading config")
	}
	if lvl, lerr := log.ParseLevel(cfg.LogLevel); lerr == nil {
		log.SetLevel(lvl)
	}

	store, err := pagestore.NewStore(cfg.DataDir)
	if err != nil {
		log.WithError(err).Fatal("relstore: opening data directory")
	}
	bm := buffer.NewManager(cfg.PoolFrames)
	cat, err := catalog.Bootstrap(bm, store)
	if err != nil {
		log.WithError(err).Fatal("relstore: bootstrapping catalog")
	}
	eng := query.NewEngine(bm, store, cat)

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "create-table":
		err = runCreateTable(cat, args)
	case "insert":
		err = runInsert(eng, args)
	case "select":
		err = runSelect(eng, args)
	case "delete":
		err = runDelete(eng, args)
	case "dump":
		err = runDump(cat, args)
	default:
		usage()
		os.Exit(2)
	}

	bm.Close()

	if err != nil {
		log.WithError(err).Error("relstore: command failed")
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: relstore <create-table|insert|select|delete|dump> [flags]")
}

// parseType parses one of "string", "integer" (or "int"), "float" into
// common.Type, ignoring case.
func parseType(s string) (common.Type, error) {
	switch strings.ToLower(s) {
	case "string":
		return common.STRING, nil
	case "integer", "int":
		return common.INTEGER, nil
	case "float":
		return common.FLOAT, nil
	default:
		return 0, fmt.Errorf("relstore: unknown attribute type %q", s)
	}
}

func parseOp(s string) (common.Operator, error) {
	switch strings.ToLower(s) {
	case "lt":
		return common.LT, nil
	case "lte":
		return common.LTE, nil
	case "eq":
		return common.EQ, nil
	case "gte":
		return common.GTE, nil
	case "gt":
		return common.GT, nil
	case "ne":
		return common.NE, nil
	default:
		return 0, fmt.Errorf("relstore: unknown operator %q", s)
	}
}

// attrSpecFlag accumulates repeated -attr name:type:len flags into
// catalog.AttrSpec values.
type attrSpecFlag []catalog.AttrSpec

func (a *attrSpecFlag) String() string { return fmt.Sprint([]catalog.AttrSpec(*a)) }

func (a *attrSpecFlag) Set(v string) error {
	parts := strings.Split(v, ":")
	if len(parts) != 3 {
		return fmt.Errorf("relstore: expected name:type:len, got %q", v)
	}
	typ, err := parseType(parts[1])
	if err != nil {
		return err
	}
	var length int
	if _, err := fmt.Sscanf(parts[2], "%d", &length); err != nil {
		return fmt.Errorf("relstore: bad length in %q: %w", v, err)
	}
	*a = append(*a, catalog.AttrSpec{Name: parts[0], Type: typ, Len: length})
	return nil
}

func runCreateTable(cat *catalog.Catalog, args []string) error {
	fs := flag.NewFlagSet("create-table", flag.ExitOnError)
	var attrs attrSpecFlag
	fs.Var(&attrs, "attr", "name:type:len, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("relstore: create-table requires exactly one relation name argument")
	}
	return cat.CreateRelation(fs.Arg(0), attrs)
}

// attrValueFlag accumulates repeated -value name=text flags.
type attrValueFlag []query.AttrValue

func (a *attrValueFlag) String() string { return fmt.Sprint([]query.AttrValue(*a)) }

func (a *attrValueFlag) Set(v string) error {
	idx := strings.IndexByte(v, '=')
	if idx < 0 {
		return fmt.Errorf("relstore: expected name=value, got %q", v)
	}
	*a = append(*a, query.AttrValue{Name: v[:idx], Value: v[idx+1:]})
	return nil
}

func runInsert(eng *query.Engine, args []string) error {
	fs := flag.NewFlagSet("insert", flag.ExitOnError)
	var values attrValueFlag
	fs.Var(&values, "value", "name=value, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("relstore: insert requires exactly one relation name argument")
	}
	return eng.Insert(fs.Arg(0), values)
}

// projFlag accumulates repeated -proj rel.attr flags.
type projFlag []query.ProjAttr

func (p *projFlag) String() string { return fmt.Sprint([]query.ProjAttr(*p)) }

func (p *projFlag) Set(v string) error {
	idx := strings.IndexByte(v, '.')
	if idx < 0 {
		return fmt.Errorf("relstore: expected relation.attribute, got %q", v)
	}
	*p = append(*p, query.ProjAttr{RelName: v[:idx], AttrName: v[idx+1:]})
	return nil
}

func runSelect(eng *query.Engine, args []string) error {
	fs := flag.NewFlagSet("select", flag.ExitOnError)
	result := fs.String("result", "", "result relation name")
	attr := fs.String("filter-attr", "", "source attribute to filter on")
	opStr := fs.String("filter-op", "eq", "comparison operator")
	probe := fs.String("filter-value", "", "probe value as text")
	var proj projFlag
	fs.Var(&proj, "proj", "relation.attribute, repeatable, in output order")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *result == "" || len(proj) == 0 {
		return fmt.Errorf("relstore: select requires -result and at least one -proj")
	}
	op, err := parseOp(*opStr)
	if err != nil {
		return err
	}
	return eng.Select(*result, proj, *attr, op, *probe)
}

func runDelete(eng *query.Engine, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	attr := fs.String("attr", "", "attribute to filter on; empty deletes every record")
	opStr := fs.String("op", "eq", "comparison operator")
	typStr := fs.String("type", "string", "attribute type")
	probe := fs.String("value", "", "probe value as text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("relstore: delete requires exactly one relation name argument")
	}
	op, err := parseOp(*opStr)
	if err != nil {
		return err
	}
	typ, err := parseType(*typStr)
	if err != nil {
		return err
	}
	return eng.Delete(fs.Arg(0), *attr, op, typ, *probe)
}

func runDump(cat *catalog.Catalog, args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("relstore: dump requires exactly one relation name argument")
	}
	rel, err := cat.GetInfo(fs.Arg(0))
	if err != nil {
		return err
	}
	attrs, err := cat.GetRelInfo(fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Printf("relation %s (%d attributes)\n", rel.RelName, rel.AttrCnt)
	for _, a := range attrs {
		fmt.Printf("  %-20s offset=%-4d len=%-4d type=%s\n", a.AttrName, a.AttrOffset, a.AttrLen, a.AttrType)
	}
	return nil
}
