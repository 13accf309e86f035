package scene

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHierarchy(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.AddTransform("root", ""))
	require.NoError(t, m.AddTransform("grp", "root"))
	require.NoError(t, m.AddMesh("face_mesh", "grp", 8))

	t.Run("children in creation order", func(t *testing.T) {
		children, err := m.Children("root")
		require.NoError(t, err)
		assert.Equal(t, []string{"grp"}, children)
	})

	t.Run("reparenting moves the subtree", func(t *testing.T) {
		require.NoError(t, m.AddTransform("other", "root"))
		require.NoError(t, m.SetParent("grp", "other"))

		children, err := m.Children("other")
		require.NoError(t, err)
		assert.Equal(t, []string{"grp"}, children)

		// The mesh moved with its parent.
		desc, err := m.Descendants("other")
		require.NoError(t, err)
		assert.Contains(t, desc, "face_mesh")
	})

	t.Run("parenting under a descendant is a cycle", func(t *testing.T) {
		err := m.SetParent("other", "grp")
		assert.ErrorIs(t, err, ErrCycle)
	})

	t.Run("delete removes the whole subtree", func(t *testing.T) {
		require.NoError(t, m.Delete("other"))
		assert.False(t, m.Exists("grp"))
		assert.False(t, m.Exists("face_mesh"))
	})
}

func TestDuplicate(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.AddTransform("geometry_grp", ""))
	require.NoError(t, m.AddTransform("L_cheek_geo", "geometry_grp"))
	require.NoError(t, m.AddMesh("L_cheek_geo_shape", "L_cheek_geo", 10))
	require.NoError(t, m.AddAttr("L_cheek_geo", "stretch", 0.5, true, false))

	created, err := m.Duplicate(context.Background(), "L_cheek_geo", "L_cheek_compil_mesh", "geometry_grp")
	require.NoError(t, err)
	assert.Equal(t, []string{"L_cheek_compil_mesh", "L_cheek_compil_mesh_shape"}, created)

	t.Run("attributes and vertices are copied", func(t *testing.T) {
		a, err := m.GetAttr("L_cheek_compil_mesh", "stretch")
		require.NoError(t, err)
		assert.Equal(t, 0.5, a.Value)

		n, err := m.VertexCount("L_cheek_compil_mesh_shape")
		require.NoError(t, err)
		assert.Equal(t, 10, n)
	})

	t.Run("duplicate onto a taken name fails", func(t *testing.T) {
		_, err := m.Duplicate(context.Background(), "L_cheek_geo", "L_cheek_compil_mesh", "geometry_grp")
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})
}

func TestAttrs(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.AddTransform("jaw_ctrl", ""))
	require.NoError(t, m.AddAttr("jaw_ctrl", "follow", 1.0, true, false))
	require.NoError(t, m.AddAttr("jaw_ctrl", "tx", 0.0, false, true))

	t.Run("user and keyable walks are disjoint here", func(t *testing.T) {
		user, err := m.UserAttrs("jaw_ctrl")
		require.NoError(t, err)
		assert.Equal(t, []string{"follow"}, user)

		keyable, err := m.KeyableAttrs("jaw_ctrl")
		require.NoError(t, err)
		assert.Equal(t, []string{"tx"}, keyable)
	})

	t.Run("locked attribute rejects writes until unlocked", func(t *testing.T) {
		require.NoError(t, m.SetAttrLocked("jaw_ctrl", "follow", true))
		assert.ErrorIs(t, m.SetAttr("jaw_ctrl", "follow", 2.0), ErrLocked)

		require.NoError(t, m.SetAttrLocked("jaw_ctrl", "follow", false))
		require.NoError(t, m.SetAttr("jaw_ctrl", "follow", 2.0))

		a, err := m.GetAttr("jaw_ctrl", "follow")
		require.NoError(t, err)
		assert.Equal(t, 2.0, a.Value)
	})
}

func TestDeformers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.AddMesh("L_cheek_mesh", "", 4))
	require.NoError(t, m.AddJoint("L_cheek_jnt", ""))
	require.NoError(t, m.AddTransform("L_handle", ""))

	t.Run("skin binding initializes zero weights per vertex", func(t *testing.T) {
		d, err := m.CreateSkin(ctx, "L_cheek_skin", "L_cheek_mesh", []string{"L_cheek_jnt"})
		require.NoError(t, err)
		assert.Equal(t, KindSkin, d.Kind)

		w, err := m.DeformerWeights("L_cheek_skin", "L_cheek_mesh")
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 0, 0, 0}, w)
	})

	t.Run("skin binding requires joint nodes", func(t *testing.T) {
		_, err := m.CreateSkin(ctx, "bad_skin", "L_cheek_mesh", []string{"L_handle"})
		assert.Error(t, err)
	})

	t.Run("list preserves application order and filters by kind", func(t *testing.T) {
		_, err := m.CreateDeformer(ctx, "L_cheek_cluster", KindCluster, "L_cheek_mesh", "L_handle")
		require.NoError(t, err)

		all, err := m.ListDeformers("L_cheek_mesh")
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "L_cheek_skin", all[0].Name)
		assert.Equal(t, "L_cheek_cluster", all[1].Name)

		clusters, err := m.ListDeformers("L_cheek_mesh", KindCluster)
		require.NoError(t, err)
		require.Len(t, clusters, 1)
		assert.Equal(t, "L_cheek_cluster", clusters[0].Name)
	})

	t.Run("weights round-trip per mesh", func(t *testing.T) {
		want := []float64{0.1, 0.2, 0.3, 0.4}
		require.NoError(t, m.SetDeformerWeights("L_cheek_cluster", "L_cheek_mesh", want))
		got, err := m.DeformerWeights("L_cheek_cluster", "L_cheek_mesh")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("attach appends an existing deformer to another mesh's stack", func(t *testing.T) {
		require.NoError(t, m.AddMesh("R_cheek_mesh", "", 4))
		require.NoError(t, m.AttachDeformer("L_cheek_cluster", "R_cheek_mesh"))

		ds, err := m.ListDeformers("R_cheek_mesh")
		require.NoError(t, err)
		require.Len(t, ds, 1)
		assert.Equal(t, "L_cheek_cluster", ds[0].Name)
	})

	t.Run("rename reaches deformers too", func(t *testing.T) {
		require.NoError(t, m.Rename("L_cheek_cluster", "L_cheek_cluster2"))
		ds, err := m.ListDeformers("L_cheek_mesh", KindCluster)
		require.NoError(t, err)
		assert.Equal(t, "L_cheek_cluster2", ds[0].Name)
	})
}

func TestConnect(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.AddTransform("src", ""))
	require.NoError(t, m.AddMesh("dst_mesh", "", 4))

	require.NoError(t, m.Connect("src.outputGeometry", "dst_mesh.inMesh"))
	require.Len(t, m.Connections, 1)
	assert.Equal(t, [2]string{"src.outputGeometry", "dst_mesh.inMesh"}, m.Connections[0])

	assert.Error(t, m.Connect("ghost.out", "dst_mesh.inMesh"))
	assert.Error(t, m.Connect("src", "dst_mesh.inMesh"))
}

func TestImportTemplate(t *testing.T) {
	m := NewMemory()
	m.RegisterTemplate("templates/bcs.scene", func(m *Memory) {
		_ = m.AddTransform("bcs_rig_grp_template", "")
	})

	require.NoError(t, m.ImportTemplate(context.Background(), "templates/bcs.scene", "bcs"))
	assert.True(t, m.Exists("bcs_rig_grp_template"))

	err := m.ImportTemplate(context.Background(), "templates/missing.scene", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}
