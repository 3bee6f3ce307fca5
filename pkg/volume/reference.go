package volume

import (
	corev1 "k8s.io/api/core/v1"
)

// ClaimVolume returns the volume definition that pods should use to mount the
// given job claim.
func ClaimVolume(volumeName, claimName string) corev1.Volume {
	return corev1.Volume{
		Name: volumeName,
		VolumeSource: corev1.VolumeSource{
			PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
				ClaimName: claimName,
			},
		},
	}
}
