package volume

import (
	"github.com/sirupsen/logrus"

	"github.com/dm-vdo/vdoformat/geometry"
	"github.com/dm-vdo/vdoformat/internal/vdoerr"
	"github.com/dm-vdo/vdoformat/layer"
)

// UpdateSuperBlockState applies the only post-format mutation this
// engine supports: flipping the super block's persisted state byte
// and rewriting exactly that one block, per spec.md section 4.10.
// When requireReadOnly is set, the current state must already be
// READ_ONLY_MODE, or the call fails NOT_READ_ONLY — this guards
// force-rebuild against running on a healthy volume.
func UpdateSuperBlockState(l layer.Layer, requireReadOnly bool, newState VDOState) error {
	logrus.WithField("new_state", newState).Info("loading geometry")
	geo, err := geometry.Load(l)
	if err != nil {
		logrus.WithError(err).Error("loading geometry")
		return err
	}
	superBlockPBN := geo.DataPartition().StartingOffset

	logrus.Info("loading super block")
	sb, err := LoadSuperBlock(l, superBlockPBN)
	if err != nil {
		logrus.WithError(err).Error("loading super block")
		return err
	}

	if requireReadOnly && sb.Component.State != StateReadOnlyMode {
		err := vdoerr.Wrap(vdoerr.KindNotReadOnly, "cannot force rebuild: volume is in state %s, not %s", sb.Component.State, StateReadOnlyMode)
		logrus.WithError(err).Error("checking read-only precondition")
		return err
	}

	logrus.WithField("new_state", newState).Info("rewriting super block")
	sb.Component.State = newState
	if err := WriteSuperBlock(l, superBlockPBN, sb); err != nil {
		logrus.WithError(err).Error("rewriting super block")
		return err
	}
	return nil
}
