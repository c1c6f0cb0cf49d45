package model

import (
	"fmt"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/dist"
	"github.com/arnovik/bugsgraph/node"
)

// flatRelation is one For-expanded Relation with every VarRef fully
// resolved (no remaining Counter references); flatten produces these in
// declaration order, and ensure/buildExprNamed consume them to construct
// the graph bottom-up.
type flatRelation struct {
	kind     string // "var", "determ", "stoch", "link"
	ref      VarRef
	dims     []int  // VarDecl only
	rhs      Expr   // DetermRel/LinkRel
	fn       string // LinkRel's inverse-link function name
	distName string // StochRel
	params   []Expr // StochRel
	bounds   *Bounds
}

// flatten expands every For loop in relations under env, appending fully
// resolved relations (in declaration order) to out.
func flatten(relations []Relation, env map[string]int, out *[]*flatRelation) error {
	for _, r := range relations {
		switch v := r.(type) {
		case VarDecl:
			*out = append(*out, &flatRelation{kind: "var", ref: VarRef{Name: v.Name}, dims: v.Dims})
		case DetermRel:
			ref, err := v.LHS.resolve(env)
			if err != nil {
				return err
			}
			rhs, err := resolveExpr(v.RHS, env)
			if err != nil {
				return err
			}
			*out = append(*out, &flatRelation{kind: "determ", ref: ref, rhs: rhs})
		case StochRel:
			ref, err := v.LHS.resolve(env)
			if err != nil {
				return err
			}
			params := make([]Expr, len(v.Params))
			for i, p := range v.Params {
				rp, err := resolveExpr(p, env)
				if err != nil {
					return err
				}
				params[i] = rp
			}
			bounds, err := v.Bounds.resolve(env)
			if err != nil {
				return err
			}
			*out = append(*out, &flatRelation{kind: "stoch", ref: ref, distName: v.Dist, params: params, bounds: bounds})
		case LinkRel:
			ref, err := v.LHS.resolve(env)
			if err != nil {
				return err
			}
			rhs, err := resolveExpr(v.RHS, env)
			if err != nil {
				return err
			}
			*out = append(*out, &flatRelation{kind: "link", ref: ref, fn: v.Fn, rhs: rhs})
		case For:
			for i := v.Counter.Range.Lower; i <= v.Counter.Range.Upper; i++ {
				child := make(map[string]int, len(env)+1)
				for k, val := range env {
					child[k] = val
				}
				child[v.Counter.Name] = i
				if err := flatten(v.Body, child, out); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("model: flatten: %w: %T", ErrUnknownExprKind, r)
		}
	}

	return nil
}

// compiler holds the transient state Compile threads through recursive
// node construction; it is discarded once Compile returns (its outputs
// live on Model: graph, nodes, fixed).
type compiler struct {
	m        *Model
	flatByRef map[string]*flatRelation
	visiting  map[string]bool
}

func (c *compiler) newID() arena.ID {
	id := c.m.nextID
	c.m.nextID++

	return id
}

// paramDims reads the current Dims() of every node in ids.
func (c *compiler) paramDims(ids []arena.ID) ([][]int, error) {
	out := make([][]int, len(ids))
	for i, id := range ids {
		k, err := c.m.graph.Node(id)
		if err != nil {
			return nil, err
		}
		out[i] = k.Dims()
	}

	return out, nil
}

// ensure returns the node ID backing ref, constructing it (and
// everything it depends on) if this is the first reference. Every path
// that creates a node registers it in m.graph and m.nodes before
// returning, so later lookups are O(1).
func (c *compiler) ensure(ref VarRef) (arena.ID, error) {
	key := ref.key()
	if id, ok := c.m.nodes[key]; ok {
		return id, nil
	}
	if c.visiting[key] {
		return 0, newError(Logic, "model", key, ErrCyclicRelation)
	}
	c.visiting[key] = true
	defer delete(c.visiting, key)

	fr, declared := c.flatByRef[key]
	if !declared {
		return c.ensureDataConstant(ref, key)
	}

	switch fr.kind {
	case "var":
		return c.buildVarDecl(fr, key)
	case "determ":
		return c.buildExprNamed(fr.rhs, key)
	case "stoch":
		return c.buildStochRel(fr, key)
	case "link":
		return c.buildLinkRel(fr, key)
	default:
		return 0, newError(Logic, "model", key, fmt.Errorf("ensure: unknown flatRelation kind %q", fr.kind))
	}
}

// ensureDataConstant builds a Constant node for a VarRef no relation
// declares, requiring data to have been supplied for it.
func (c *compiler) ensureDataConstant(ref VarRef, key string) (arena.ID, error) {
	val, found, err := c.m.dataScalar(ref)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, newError(DimensionMismatch, "model", key, ErrUndeclaredNode)
	}
	id := c.newID()
	n := node.NewConstant(id, key, []int{1}, false)
	if err := c.m.graph.AddNode(n); err != nil {
		return 0, newError(Logic, "model", key, err)
	}
	c.m.nodes[key] = id
	c.m.fixed[id] = []float64{val}

	return id, nil
}

// buildVarDecl resolves a bare VAR declaration: it must be backed by
// supplied data (a VarDecl with no relation has no other way to acquire a
// value).
func (c *compiler) buildVarDecl(fr *flatRelation, key string) (arena.ID, error) {
	arr, ok := c.m.dataVector(fr.ref.Name)
	if !ok {
		return 0, newError(DimensionMismatch, "model", key, fmt.Errorf("buildVarDecl: %q has no supplied data", key))
	}
	id := c.newID()
	n := node.NewConstant(id, key, append([]int{}, fr.dims...), false)
	if err := c.m.graph.AddNode(n); err != nil {
		return 0, newError(Logic, "model", key, err)
	}
	c.m.nodes[key] = id
	c.m.fixed[id] = append([]float64{}, arr.Value()...)

	return id, nil
}

// buildExprNamed constructs (or reuses) the node computing e's value,
// naming any newly created node. A CallExpr always produces a fresh
// Logical node; a RefExpr always produces a fresh identity Link wrapping
// the referenced node, so every Expr position gets its own addressable
// node under the name the caller requests.
func (c *compiler) buildExprNamed(e Expr, name string) (arena.ID, error) {
	switch v := e.(type) {
	case ConstExpr:
		id := c.newID()
		n := node.NewConstant(id, name, []int{len(v.Value)}, false)
		if err := c.m.graph.AddNode(n); err != nil {
			return 0, newError(Logic, "model", name, err)
		}
		c.m.nodes[name] = id
		c.m.fixed[id] = append([]float64{}, v.Value...)

		return id, nil
	case RefExpr:
		src, err := c.ensure(v.Ref)
		if err != nil {
			return 0, err
		}
		srcNode, err := c.m.graph.Node(src)
		if err != nil {
			return 0, newError(Logic, "model", name, err)
		}
		id := c.newID()
		link := node.NewLink(id, name, srcNode.Dims(), dist.IdentityLink{}, src)
		if err := c.m.graph.AddNode(link); err != nil {
			return 0, newError(Logic, "model", name, err)
		}
		c.m.nodes[name] = id

		return id, nil
	case CallExpr:
		argIDs := make([]arena.ID, len(v.Args))
		for i, a := range v.Args {
			aid, err := c.buildExprNamed(a, fmt.Sprintf("%s§%d", name, i))
			if err != nil {
				return 0, err
			}
			argIDs[i] = aid
		}
		fn, err := c.m.reg.Function(v.Fn)
		if err != nil {
			return 0, newError(DimensionMismatch, "model", name, err)
		}
		paramDims, err := c.paramDims(argIDs)
		if err != nil {
			return 0, newError(Logic, "model", name, err)
		}
		if !fn.CheckParamDim(paramDims) {
			return 0, newError(DimensionMismatch, "model", name, fmt.Errorf("buildExprNamed: %q: bad argument dims", v.Fn))
		}
		dims, err := fn.Dim(paramDims)
		if err != nil {
			return 0, newError(DimensionMismatch, "model", name, err)
		}
		id := c.newID()
		logical := node.NewLogical(id, name, dims, fn, argIDs)
		if err := c.m.graph.AddNode(logical); err != nil {
			return 0, newError(Logic, "model", name, err)
		}
		c.m.nodes[name] = id

		return id, nil
	default:
		return 0, newError(Logic, "model", name, fmt.Errorf("buildExprNamed: %w: %T", ErrUnknownExprKind, e))
	}
}

// buildStochRel constructs a Stochastic node. Whether it is observed is
// decided purely by whether data was supplied for key (spec §6's BUGS
// convention), not by any explicit flag on StochRel.
func (c *compiler) buildStochRel(fr *flatRelation, key string) (arena.ID, error) {
	paramIDs := make([]arena.ID, len(fr.params))
	for i, p := range fr.params {
		pid, err := c.buildExprNamed(p, fmt.Sprintf("%s§p%d", key, i))
		if err != nil {
			return 0, err
		}
		paramIDs[i] = pid
	}
	d, err := c.m.reg.Distribution(fr.distName)
	if err != nil {
		return 0, newError(DimensionMismatch, "model", key, err)
	}
	paramDims, err := c.paramDims(paramIDs)
	if err != nil {
		return 0, newError(Logic, "model", key, err)
	}
	if !d.CheckParamDim(paramDims) {
		return 0, newError(DimensionMismatch, "model", key, fmt.Errorf("buildStochRel: %q: bad parameter dims", fr.distName))
	}
	dims, err := d.Dim(paramDims)
	if err != nil {
		return 0, newError(DimensionMismatch, "model", key, err)
	}

	parents := append([]arena.ID{}, paramIDs...)
	var lowerID, upperID *arena.ID
	if fr.bounds != nil {
		if fr.bounds.Lower != nil {
			lid, err := c.buildExprNamed(fr.bounds.Lower, key+"§lower")
			if err != nil {
				return 0, err
			}
			lowerID = &lid
			parents = append(parents, lid)
		}
		if fr.bounds.Upper != nil {
			uid, err := c.buildExprNamed(fr.bounds.Upper, key+"§upper")
			if err != nil {
				return 0, err
			}
			upperID = &uid
			parents = append(parents, uid)
		}
	}

	val, observed, err := c.m.dataScalar(fr.ref)
	if err != nil {
		return 0, err
	}

	id := c.newID()
	n := node.NewStochastic(id, key, dims, d, paramIDs, lowerID, upperID, observed, parents)
	if err := c.m.graph.AddNode(n); err != nil {
		return 0, newError(Logic, "model", key, err)
	}
	c.m.nodes[key] = id
	if observed {
		c.m.fixed[id] = []float64{val}
	}

	return id, nil
}

// buildLinkRel constructs the linear-predictor node for fr.rhs, then a
// Link node mapping it through fr.fn's inverse.
func (c *compiler) buildLinkRel(fr *flatRelation, key string) (arena.ID, error) {
	etaID, err := c.buildExprNamed(fr.rhs, key+"§eta")
	if err != nil {
		return 0, err
	}
	fn, err := c.m.reg.Function(fr.fn)
	if err != nil {
		return 0, newError(DimensionMismatch, "model", key, err)
	}
	lf, ok := fn.(dist.LinkFunction)
	if !ok {
		return 0, newError(DimensionMismatch, "model", key, fmt.Errorf("buildLinkRel: %q is not a link function", fr.fn))
	}
	etaNode, err := c.m.graph.Node(etaID)
	if err != nil {
		return 0, newError(Logic, "model", key, err)
	}
	id := c.newID()
	link := node.NewLink(id, key, etaNode.Dims(), lf, etaID)
	if err := c.m.graph.AddNode(link); err != nil {
		return 0, newError(Logic, "model", key, err)
	}
	c.m.nodes[key] = id

	return id, nil
}

// Compile expands every For loop and builds the dag.Graph (spec §6
// "compile (build graph)"). Must be called exactly once, after every
// SetData call and before Initialize.
func (m *Model) Compile() error {
	if m.compiled {
		return newError(Logic, "model", "", ErrAlreadyCompiled)
	}

	var flat []*flatRelation
	if err := flatten(m.tree.Relations, map[string]int{}, &flat); err != nil {
		return err
	}

	flatByRef := make(map[string]*flatRelation, len(flat))
	for _, fr := range flat {
		flatByRef[fr.ref.key()] = fr
	}

	m.graph = dag.New()
	c := &compiler{m: m, flatByRef: flatByRef, visiting: make(map[string]bool)}

	for _, fr := range flat {
		if _, err := c.ensure(fr.ref); err != nil {
			return err
		}
	}

	m.flat = flat
	m.compiled = true
	m.cfg.logger.Info().Int("nodes", m.graph.Len()).Int("relations", len(flat)).Msg("model compiled")

	return nil
}
