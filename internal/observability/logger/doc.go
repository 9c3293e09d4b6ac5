// Package logger envuelve zap para el admin panel.
//
// Un logger global (Init/L) que los binarios configuran al arrancar, y un logger
// por request que el middleware de logging guarda en el contexto con request_id,
// method y path. Services, audit y client lo recuperan con From o FromWithFields.
//
//	log := logger.FromWithFields(ctx, logger.Layer("service"), logger.Op("Create"))
//	log.Info("user created", logger.UserID(id), logger.Email(email))
//
// Email siempre loguea la dirección enmascarada.
package logger
