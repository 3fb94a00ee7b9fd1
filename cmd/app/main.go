// @title RailMon Service API
// @version 1.0.0
// @description API для мониторинга вибрации и температуры буксовых узлов по протоколу Modbus RTU и отправки данных в Kafka.
// @host localhost:8080
// @BasePath /api/v1
package main

import "github.com/iwtcode/railmon/internal/app"

func main() {
	// Создаем и запускаем новый экземпляр приложения fx
	app.New().Run()
}
