package stack

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lfdn/facerig/internal/config"
	"github.com/lfdn/facerig/internal/report"
	"github.com/lfdn/facerig/internal/scene"
)

func buildModel(stacks map[string]*config.Stack, order []string) *config.Model {
	return &config.Model{
		Project: config.Project{Asset: "hero", ProjectDirectory: "/p"},
		Parts: map[string]*config.Part{
			"cheek": {Name: "cheek", Reference: "{}_cheek_geo", Groups: []string{"compilation"}},
		},
		PartOrder:  []string{"cheek"},
		Stacks:     stacks,
		StackOrder: order,
	}
}

func buildScene(t *testing.T) *scene.Memory {
	t.Helper()
	m := scene.NewMemory()
	require.NoError(t, m.AddMesh("L_cheek_mesh", "", 4))
	require.NoError(t, m.AddMesh("R_cheek_mesh", "", 4))
	require.NoError(t, m.AddJoint("L_cheek_jnt", ""))
	require.NoError(t, m.AddJoint("R_cheek_jnt", ""))
	require.NoError(t, m.AddTransform("L_handle", ""))
	require.NoError(t, m.AddTransform("R_handle", ""))
	return m
}

func TestRun(t *testing.T) {
	t.Run("declared order is the live stack order", func(t *testing.T) {
		m := buildScene(t)
		model := buildModel(map[string]*config.Stack{
			"{}_cheek_mesh": {Mesh: "{}_cheek_mesh", Deformers: []config.DeformerEntry{
				{Name: "{side}_cheek_skin", Params: config.SkinParams{Joints: []string{"{side}_cheek_jnt"}, Envelope: 1}},
				{Name: "{side}_cheek_cluster", Params: config.GenericParams{Kind: "cluster", Source: "{side}_handle"}},
			}},
		}, []string{"{}_cheek_mesh"})

		result, rep, err := (&Builder{Scene: m, Model: model}).Run(context.Background())
		require.NoError(t, err)
		require.Empty(t, rep.Errors())
		assert.Equal(t, 2, rep.Completed)
		assert.Equal(t, []string{"L_cheek_mesh", "R_cheek_mesh"}, result.Order)

		for _, side := range []string{"L", "R"} {
			handles := result.Stacks[side+"_cheek_mesh"]
			require.Len(t, handles, 2)
			assert.Equal(t, side+"_cheek_skin", handles[0].Name)
			assert.Equal(t, scene.KindSkin, handles[0].Kind)
			assert.Equal(t, side+"_cheek_cluster", handles[1].Name)

			live, err := m.ListDeformers(side + "_cheek_mesh")
			require.NoError(t, err)
			assert.Equal(t, handles, live)
		}
	})

	t.Run("parameterless entry records the template-made handle at its index", func(t *testing.T) {
		m := buildScene(t)
		// The template import already created the shared deformer.
		_, err := m.CreateDeformer(context.Background(), "face_bcs", scene.KindCluster, "L_handle", "L_handle")
		require.NoError(t, err)

		model := buildModel(map[string]*config.Stack{
			"L_cheek_mesh": {Mesh: "L_cheek_mesh", Deformers: []config.DeformerEntry{
				{Name: "L_cheek_skin", Params: config.SkinParams{Joints: []string{"L_cheek_jnt"}, Envelope: 1}},
				{Name: "face_bcs"},
				{Name: "L_cheek_cluster", Params: config.GenericParams{Kind: "cluster", Source: "L_handle"}},
			}},
		}, []string{"L_cheek_mesh"})

		result, rep, err := (&Builder{Scene: m, Model: model}).Run(context.Background())
		require.NoError(t, err)
		require.Empty(t, rep.Errors())

		handles := result.Stacks["L_cheek_mesh"]
		require.Len(t, handles, 3)
		// Index 1 is always the recorded middle entry, created or not.
		assert.Equal(t, "face_bcs", handles[1].Name)
		assert.Equal(t, "L_cheek_cluster", handles[2].Name)
	})

	t.Run("side token in a deformer name doubles the stack positions", func(t *testing.T) {
		m := buildScene(t)
		model := buildModel(map[string]*config.Stack{
			"L_cheek_mesh": {Mesh: "L_cheek_mesh", Deformers: []config.DeformerEntry{
				{Name: "{}_corner_cluster", Params: config.GenericParams{Kind: "cluster", Source: "L_handle"}},
			}},
		}, []string{"L_cheek_mesh"})

		result, rep, err := (&Builder{Scene: m, Model: model}).Run(context.Background())
		require.NoError(t, err)
		require.Empty(t, rep.Errors())

		handles := result.Stacks["L_cheek_mesh"]
		require.Len(t, handles, 2)
		assert.Equal(t, "L_corner_cluster", handles[0].Name)
		assert.Equal(t, "R_corner_cluster", handles[1].Name)
	})

	t.Run("unresolved joint fails the whole stack for that mesh", func(t *testing.T) {
		m := buildScene(t)
		model := buildModel(map[string]*config.Stack{
			"L_cheek_mesh": {Mesh: "L_cheek_mesh", Deformers: []config.DeformerEntry{
				{Name: "L_cheek_cluster", Params: config.GenericParams{Kind: "cluster", Source: "L_handle"}},
				{Name: "L_cheek_skin", Params: config.SkinParams{Joints: []string{"ghost_jnt"}, Envelope: 1}},
			}},
		}, []string{"L_cheek_mesh"})

		result, rep, err := (&Builder{Scene: m, Model: model}).Run(context.Background())
		require.NoError(t, err)
		assert.True(t, rep.HasClass(report.ErrNomenclature))
		assert.Empty(t, result.Stacks)

		// The failing skin was never bound.
		live, err := m.ListDeformers("L_cheek_mesh")
		require.NoError(t, err)
		assert.NotContains(t, Fingerprint(live), "skin")
	})

	t.Run("existing deformer name is a resource collision", func(t *testing.T) {
		m := buildScene(t)
		_, err := m.CreateDeformer(context.Background(), "L_cheek_cluster", scene.KindCluster, "L_cheek_mesh", "L_handle")
		require.NoError(t, err)

		model := buildModel(map[string]*config.Stack{
			"L_cheek_mesh": {Mesh: "L_cheek_mesh", Deformers: []config.DeformerEntry{
				{Name: "L_cheek_cluster", Params: config.GenericParams{Kind: "cluster", Source: "L_handle"}},
			}},
		}, []string{"L_cheek_mesh"})

		_, rep, err := (&Builder{Scene: m, Model: model}).Run(context.Background())
		require.NoError(t, err)
		assert.True(t, rep.HasClass(report.ErrAlreadyExists))
	})

	t.Run("missing mesh is collected and the rest still builds", func(t *testing.T) {
		m := buildScene(t)
		require.NoError(t, m.Delete("R_cheek_mesh"))

		model := buildModel(map[string]*config.Stack{
			"{}_cheek_mesh": {Mesh: "{}_cheek_mesh", Deformers: []config.DeformerEntry{
				{Name: "{side}_cheek_cluster", Params: config.GenericParams{Kind: "cluster", Source: "{side}_handle"}},
			}},
		}, []string{"{}_cheek_mesh"})

		result, rep, err := (&Builder{Scene: m, Model: model}).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, rep.Completed)
		assert.Contains(t, result.Stacks, "L_cheek_mesh")

		errs := rep.Errors()
		require.Len(t, errs, 1)
		assert.Equal(t, "R_cheek_mesh", errs[0].Entity)
	})
}

func TestResolveJointsHierarchy(t *testing.T) {
	m := scene.NewMemory()
	require.NoError(t, m.AddMesh("jaw_mesh", "", 4))
	require.NoError(t, m.AddJoint("jaw_jnt", ""))
	require.NoError(t, m.AddJoint("jaw_tip_jnt", "jaw_jnt"))
	require.NoError(t, m.AddJoint("jaw_mid_jnt", "jaw_jnt"))

	model := &config.Model{
		Parts:     map[string]*config.Part{"jaw": {Name: "jaw", Reference: "jaw_geo", Groups: []string{"rig"}}},
		PartOrder: []string{"jaw"},
		Stacks: map[string]*config.Stack{
			"jaw_mesh": {Mesh: "jaw_mesh", Deformers: []config.DeformerEntry{
				{Name: "jaw_skin", Params: config.SkinParams{
					Joints:       []string{"jaw_jnt"},
					UseHierarchy: true,
					Envelope:     1,
				}},
			}},
		},
		StackOrder: []string{"jaw_mesh"},
	}

	_, rep, err := (&Builder{Scene: m, Model: model}).Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, rep.Errors())
	assert.Equal(t, []string{"jaw_jnt", "jaw_tip_jnt", "jaw_mid_jnt"}, m.SkinJoints("jaw_skin"))
}

func TestConcreteMeshes(t *testing.T) {
	model := &config.Model{
		Parts: map[string]*config.Part{
			"cheek": {
				Name:      "cheek",
				Reference: "{}_cheek_geo",
				Groups:    []string{"compilation"},
				Aliases:   map[string]string{"L_cheek_mesh": "L_cheeck_mesh"},
			},
		},
		PartOrder: []string{"cheek"},
	}

	t.Run("group key expands to its children", func(t *testing.T) {
		m := scene.NewMemory()
		require.NoError(t, m.AddTransform("cheek_grp", ""))
		require.NoError(t, m.AddMesh("a_cheek_mesh", "cheek_grp", 4))
		require.NoError(t, m.AddMesh("b_cheek_mesh", "cheek_grp", 4))

		meshes, missing := ConcreteMeshes(m, model, "cheek_grp")
		assert.Empty(t, missing)
		assert.Equal(t, []string{"a_cheek_mesh", "b_cheek_mesh"}, meshes)
	})

	t.Run("alias covers a misspelled scene node", func(t *testing.T) {
		m := scene.NewMemory()
		require.NoError(t, m.AddMesh("L_cheeck_mesh", "", 4))
		require.NoError(t, m.AddMesh("R_cheek_mesh", "", 4))

		meshes, missing := ConcreteMeshes(m, model, "{}_cheek_mesh")
		assert.Empty(t, missing)
		assert.Equal(t, []string{"L_cheeck_mesh", "R_cheek_mesh"}, meshes)
	})

	t.Run("absent side is reported missing", func(t *testing.T) {
		m := scene.NewMemory()
		require.NoError(t, m.AddMesh("L_cheek_mesh", "", 4))

		meshes, missing := ConcreteMeshes(m, model, "{}_cheek_mesh")
		assert.Equal(t, []string{"L_cheek_mesh"}, meshes)
		assert.Equal(t, []string{"R_cheek_mesh"}, missing)
	})
}
