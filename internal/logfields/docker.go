package logfields

import "go.uber.org/zap"

func Image(val string) zap.Field {
	return zap.String("docker.image", val)
}

func Tag(val string) zap.Field {
	return zap.String("docker.tag", val)
}
